package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/iamvkosarev/study-energy-bot/internal/model"
	"github.com/iamvkosarev/study-energy-bot/pkg/extract"
	"github.com/iamvkosarev/study-energy-bot/pkg/local"
	"github.com/iamvkosarev/study-energy-bot/pkg/prompt"
	"go.uber.org/zap"
)

// The four prompt templates, one per generation-backed feature. The texts
// are product copy and stay in Chinese.
const (
	FortunePrompt = `请为我生成一段鼓励学习的话术，要求：
1. 字数在35-45个字之间
2. 突出学习的意义和美好前景
3. 强调克服困难的重要性和学习者具备的潜力
4. 从 （宜学习、宜积累、宜休息、宜奋进） 中随机选出一个，字段名称 type
5. 请以JSON格式返回，包含字段 content type`

	TimerPrompt = "请根据学习时间${time}（时间单位是秒）为我生成一段鼓励学习的话术，要求：\n1. 字数在100个字左右\n2. 突出学习的意义和美好前景\n3. 强调克服困难的重要性和学习者具备的潜力\n4. 如果学习时间很短可以适当批评督促\n5. 请以JSON格式返回，包含字段 content"

	TreeHolePrompt = "请根据用户输入的信息：${content}，做出合理的回答。要求：\n1. 请以JSON格式返回，包含字段 content"

	BuddyChatPrompt = "请根据用户输入的信息：${content}，进行好友对话。要求：\n1. 请以JSON格式返回，包含字段 content"
)

var ErrUnknownFeature = errors.New("feature has no prompt template")

var (
	fortuneFallback = local.NewSet(
		"今天的勤奋耕耘是明日硕果的根基，坚持让知识照亮前行的道路，你将遇见更好的自己，未来必定光芒万丈。",
		local.NewTrans(local.Eng, "Today's diligence seeds tomorrow's harvest. Keep letting knowledge light the road ahead and you will meet a better self."),
	)

	timerFallback = local.NewSet(
		"太棒了！你刚刚专注学习了一段时间，继续保持这种状态！",
		local.NewTrans(local.Eng, "Well done! You just put in some focused study time. Keep it up!"),
	)

	treeHoleFallbacks = []local.TextSet{
		local.NewSet(
			"我在认真听呢，再多说一点吧~",
			local.NewTrans(local.Eng, "I'm listening. Tell me a bit more~"),
		),
		local.NewSet(
			"辛苦啦！学习路上有我陪着你。",
			local.NewTrans(local.Eng, "You've worked hard! I'm here with you on this road."),
		),
		local.NewSet(
			"遇到困难很正常，休息一下再出发也没关系。",
			local.NewTrans(local.Eng, "Hitting a wall is normal. It's fine to rest before setting out again."),
		),
		local.NewSet(
			"抱抱你，今天也是努力的一天呢。",
			local.NewTrans(local.Eng, "A hug for you. Today was another day of real effort."),
		),
	}

	buddyChatFallback = local.NewSet(
		"抱歉，我现在有点累了，稍后再聊吧~",
		local.NewTrans(local.Eng, "Sorry, I'm a bit tired right now. Let's chat later~"),
	)
)

type Generator interface {
	Generate(ctx context.Context, resolvedPrompt string) (string, error)
}

type GenerationUsecaseDeps struct {
	Generator Generator
}

type GenerationUsecase struct {
	GenerationUsecaseDeps
	language local.Language
	logger   *zap.Logger
}

func NewGenerationUsecase(deps GenerationUsecaseDeps, language local.Language, logger *zap.Logger) *GenerationUsecase {
	return &GenerationUsecase{
		GenerationUsecaseDeps: deps,
		language:              language,
		logger:                logger,
	}
}

// GeneratePayload drives one pipeline invocation for feature: resolve the
// template, call the generator, extract the structured payload. Transport
// and extraction failures never escape: they are logged and replaced by
// the feature's fallback payload, indistinguishable from genuine content.
// An unresolved placeholder is a caller bug and aborts the invocation
// without fallback.
func (g *GenerationUsecase) GeneratePayload(
	ctx context.Context,
	feature model.Feature,
	subs map[string]string,
) (model.ExtractedPayload, error) {
	template, err := templateFor(feature)
	if err != nil {
		return model.ExtractedPayload{}, err
	}
	resolved, err := prompt.Resolve(template, subs)
	if err != nil {
		return model.ExtractedPayload{}, fmt.Errorf("failed to resolve prompt for %s: %w", feature, err)
	}

	raw, err := g.Generator.Generate(ctx, resolved)
	if err != nil {
		g.logger.Warn(
			"generation failed, substituting fallback",
			zap.String("feature", string(feature)),
			zap.Error(err),
		)
		return g.fallback(feature), nil
	}

	payload, err := extract.Payload(raw)
	if err != nil {
		g.logger.Warn(
			"extraction failed, substituting fallback",
			zap.String("feature", string(feature)),
			zap.String("raw", raw),
			zap.Error(err),
		)
		return g.fallback(feature), nil
	}
	return payload, nil
}

func templateFor(feature model.Feature) (string, error) {
	switch feature {
	case model.FeatureFortune:
		return FortunePrompt, nil
	case model.FeatureTimer:
		return TimerPrompt, nil
	case model.FeatureTreeHole:
		return TreeHolePrompt, nil
	case model.FeatureBuddyChat:
		return BuddyChatPrompt, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFeature, feature)
	}
}

func (g *GenerationUsecase) fallback(feature model.Feature) model.ExtractedPayload {
	switch feature {
	case model.FeatureFortune:
		return model.ExtractedPayload{
			Type:    "宜学习",
			Content: fortuneFallback.Text(g.language),
		}
	case model.FeatureTimer:
		return model.ExtractedPayload{Content: timerFallback.Text(g.language)}
	case model.FeatureTreeHole:
		pick := treeHoleFallbacks[rand.Intn(len(treeHoleFallbacks))]
		return model.ExtractedPayload{Content: pick.Text(g.language)}
	default:
		return model.ExtractedPayload{Content: buddyChatFallback.Text(g.language)}
	}
}
