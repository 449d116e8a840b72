package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/google/uuid"
	"github.com/iamvkosarev/study-energy-bot/config"
	"github.com/iamvkosarev/study-energy-bot/internal/model"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

const (
	MessageServerError       = "我这边出了点小问题，稍后再试试吧~"
	MessageUserNoAccess      = "你还没有使用权限哦"
	MessageCommandStart      = "欢迎来到学习能量站！\n/fortune 学习能量盲盒\n/timer 学习计时\n/chat 伴学树洞\n/buddy 寻找学习搭子\n/pet 学习宠物\n/back 返回首页"
	MessageCommandHelp       = "用 /fortune 抽一签学习能量，/timer 记录学习时间，/chat 和树洞聊聊天，/buddy 寻找学习搭子，/pet 看看你的学习宠物。"
	MessageCommandUnknown    = "我还不认识这个命令"
	MessageNoActiveChat      = "现在不在聊天中，用 /chat 或 /buddy 开始对话吧"
	MessageReplyPending      = "我还在思考上一条消息，稍等一下~"
	MessageBackHome          = "已返回首页"
	MessageFortuneIntro      = "学习能量盲盒：点击开始求签，抽取今天的学习能量！"
	MessageFortuneDrawing    = "求签中..."
	MessageTreeHoleWelcome   = "心情如何？我能给你满满的情绪价值哦。"
	MessageBuddyIntro        = "寻找学习搭子：发现附近正在学习的伙伴"
	MessageBuddySearching    = "搜索中..."
	MessageBuddySearchBusy   = "还在搜索中，再等等~"
	MessageBuddyListFormat   = "找到附近 %d 位学习搭子，快给搭子点赞 送能量吧"
	MessageBuddyLiked        = "点赞成功！"
	MessageBuddyUnliked      = "已取消点赞"
	MessageBuddyGiftFormat   = "已赠送10点学习能量值给%s！"
	MessageBuddyWelcomeFmt   = "你好！我是%s，很高兴认识你，有什么想聊的吗？"
	MessageTimerIntro        = "学习计时器：开始计时，专注学习！"
	MessageTimerStopFormat   = "本次专注学习 %s\n\n%s"
	MessageTimerReset        = "计时器已重置"
	MessagePetStatusFormat   = "你的学习宠物：\n能量：%d/100\n心情：%d/100\n等级：Lv.%d（%d/%d)\n状态：%s"

	CommandStart   = "start"
	CommandHelp    = "help"
	CommandFortune = "fortune"
	CommandTimer   = "timer"
	CommandChat    = "chat"
	CommandBuddy   = "buddy"
	CommandPet     = "pet"
	CommandBack    = "back"

	treeHoleAvatar  = "❤️"
	buddyChatAvatar = "👋"
)

var treeHoleGuideQuestions = []string{
	"今天学习遇到什么困难了吗？",
	"有什么想和我聊聊的吗？",
}

type TelegramUsecaseDeps struct {
	User       *UserUsecase
	Bot        *api.BotAPI
	Generation *GenerationUsecase
	Session    *ChatSessionUsecase
	Timer      *TimerUsecase
	Pet        *PetUsecase
	Buddy      *BuddyUsecase
}

type TelegramUsecase struct {
	TelegramUsecaseDeps
	cfg          config.Telegram
	logger       *zap.Logger
	wg           *conc.WaitGroup
	allowedUsers map[int64]struct{}
}

func NewTelegramUsecase(cfg config.Telegram, deps TelegramUsecaseDeps, logger *zap.Logger) (*TelegramUsecase, error) {
	allowedUsers := make(map[int64]struct{})
	for _, userID := range cfg.AllowedTelegramID {
		allowedUsers[userID] = struct{}{}
	}
	for _, userID := range cfg.AdminTelegramIDList {
		allowedUsers[userID] = struct{}{}
	}

	_, err := deps.Bot.Request(
		api.NewSetMyCommands(
			[]api.BotCommand{
				{Command: CommandFortune, Description: "学习能量盲盒"},
				{Command: CommandTimer, Description: "学习计时"},
				{Command: CommandChat, Description: "伴学树洞"},
				{Command: CommandBuddy, Description: "寻找学习搭子"},
				{Command: CommandPet, Description: "学习宠物"},
				{Command: CommandBack, Description: "返回首页"},
			}...,
		),
	)
	if err != nil {
		return nil, err
	}

	return &TelegramUsecase{
		TelegramUsecaseDeps: deps,
		cfg:                 cfg,
		logger:              logger,
		wg:                  conc.NewWaitGroup(),
		allowedUsers:        allowedUsers,
	}, nil
}

func (t *TelegramUsecase) Run() error {
	u := api.NewUpdate(0)
	u.Timeout = 60

	updates := t.Bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message != nil {
			if err := t.handleMessage(update); err != nil {
				t.logger.Error("error handling message", zap.Error(err))
			}
		}
		if update.CallbackQuery != nil {
			if err := t.handleCallbackQuery(update); err != nil {
				t.logger.Error("error handling callback query", zap.Error(err))
			}
		}
	}
	t.wg.Wait()
	return nil
}

func (t *TelegramUsecase) handleMessage(update api.Update) error {
	ctx := context.Background()
	chatID := update.Message.Chat.ID

	if t.cfg.IsNotPublic {
		if _, ok := t.allowedUsers[chatID]; !ok {
			t.sendMessageAndHandleErr(chatID, MessageUserNoAccess)
			return nil
		}
	}

	user, err := t.User.GetUserInfoForTelegramUser(ctx, chatID)
	if err != nil {
		t.sendMessageAndHandleErr(chatID, MessageServerError)
		return fmt.Errorf("failed to get user info for telegram user: %w", err)
	}

	if update.Message.IsCommand() {
		return t.handleCommand(ctx, user, chatID, update.Message.Command())
	}

	return t.handleChatText(ctx, user, chatID, update.Message.Text)
}

func (t *TelegramUsecase) handleCommand(ctx context.Context, user model.User, chatID int64, command string) error {
	switch command {
	case CommandStart:
		t.sendMessageAndHandleErr(chatID, MessageCommandStart)
	case CommandHelp:
		t.sendMessageAndHandleErr(chatID, MessageCommandHelp)
	case CommandFortune:
		msg := api.NewMessage(chatID, MessageFortuneIntro)
		msg.ReplyMarkup = api.NewInlineKeyboardMarkup(
			api.NewInlineKeyboardRow(api.NewInlineKeyboardButtonData("开始求签", "fortune:draw")),
		)
		if _, err := t.sendToBot(msg); err != nil {
			return fmt.Errorf("failed to send fortune intro: %w", err)
		}
	case CommandTimer:
		msg := api.NewMessage(chatID, MessageTimerIntro)
		msg.ReplyMarkup = timerKeyboard()
		if _, err := t.sendToBot(msg); err != nil {
			return fmt.Errorf("failed to send timer intro: %w", err)
		}
	case CommandChat:
		return t.startTreeHole(ctx, user, chatID)
	case CommandBuddy:
		return t.enterBuddy(ctx, user, chatID, false)
	case CommandPet:
		t.sendPetStatus(chatID, t.Pet.GetPet(user.UserID))
	case CommandBack:
		return t.handleBack(ctx, user, chatID)
	default:
		t.sendMessageAndHandleErr(chatID, MessageCommandUnknown)
	}
	return nil
}

// handleChatText routes free text into the user's active chat session.
func (t *TelegramUsecase) handleChatText(ctx context.Context, user model.User, chatID int64, text string) error {
	if user.ActiveSession == uuid.Nil {
		t.sendMessageAndHandleErr(chatID, MessageNoActiveChat)
		return nil
	}

	session, err := t.Session.GetSession(ctx, user.ActiveSession)
	if err != nil {
		t.sendMessageAndHandleErr(chatID, MessageServerError)
		return fmt.Errorf("failed to get active session: %w", err)
	}

	avatar := treeHoleAvatar
	if session.Feature == model.FeatureBuddyChat {
		avatar = buddyChatAvatar
	}

	reply, ok, err := t.Session.Submit(ctx, session.SessionID, text, avatar)
	if err != nil {
		t.sendMessageAndHandleErr(chatID, MessageServerError)
		return fmt.Errorf("failed to submit message: %w", err)
	}
	if !ok {
		t.sendMessageAndHandleErr(chatID, MessageReplyPending)
		return nil
	}

	if _, err = t.Bot.Request(api.NewChatAction(chatID, api.ChatTyping)); err != nil {
		t.logger.Warn("failed to send typing action", zap.Error(err))
	}
	t.wg.Go(
		func() {
			for msg := range reply {
				t.sendMessageAndHandleErr(chatID, msg.Content)
			}
		},
	)
	return nil
}

func (t *TelegramUsecase) handleCallbackQuery(update api.Update) error {
	ctx := context.Background()
	chatID := update.CallbackQuery.Message.Chat.ID
	data := update.CallbackQuery.Data
	callback := api.NewCallback(update.CallbackQuery.ID, "")
	if _, err := t.Bot.Request(callback); err != nil {
		return fmt.Errorf("failed to request callback: %w", err)
	}

	user, err := t.User.GetUserInfoForTelegramUser(ctx, chatID)
	if err != nil {
		t.sendMessageAndHandleErr(chatID, MessageServerError)
		return fmt.Errorf("failed to get user info for telegram user: %w", err)
	}

	return t.dispatchCallback(ctx, user, chatID, data)
}

// dispatchCallback routes inline keyboard data. The data arrives from the
// client unmodified, so malformed values are dropped, never trusted.
func (t *TelegramUsecase) dispatchCallback(ctx context.Context, user model.User, chatID int64, data string) error {
	parts := strings.Split(data, ":")
	switch parts[0] {
	case "fortune":
		return t.drawFortune(ctx, chatID)
	case "timer":
		if len(parts) == 2 {
			return t.handleTimerAction(ctx, user, chatID, parts[1])
		}
	case "pet":
		if len(parts) == 2 {
			return t.handlePetAction(user, chatID, parts[1])
		}
	case "buddy":
		if len(parts) > 1 {
			return t.handleBuddyAction(ctx, user, chatID, parts[1:])
		}
	case "guide":
		if len(parts) == 2 {
			idx, err := strconv.Atoi(parts[1])
			if err != nil || idx < 0 || idx >= len(treeHoleGuideQuestions) {
				return fmt.Errorf("bad guide question index %q", data)
			}
			return t.handleChatText(ctx, user, chatID, treeHoleGuideQuestions[idx])
		}
	}
	t.logger.Warn("ignoring malformed callback data", zap.String("data", data))
	return nil
}

func (t *TelegramUsecase) drawFortune(ctx context.Context, chatID int64) error {
	t.sendMessageAndHandleErr(chatID, MessageFortuneDrawing)
	t.wg.Go(
		func() {
			payload, err := t.Generation.GeneratePayload(ctx, model.FeatureFortune, nil)
			if err != nil {
				t.logger.Error("fortune generation aborted", zap.Error(err))
				t.sendMessageAndHandleErr(chatID, MessageServerError)
				return
			}
			text := payload.Content
			if payload.Type != "" {
				text = fmt.Sprintf("【%s】\n%s", payload.Type, payload.Content)
			}
			msg := api.NewMessage(chatID, text)
			msg.ReplyMarkup = api.NewInlineKeyboardMarkup(
				api.NewInlineKeyboardRow(api.NewInlineKeyboardButtonData("再抽一次", "fortune:draw")),
			)
			if _, err := t.sendToBot(msg); err != nil {
				t.logger.Error("failed to send fortune result", zap.Error(err))
			}
		},
	)
	return nil
}

func (t *TelegramUsecase) handleTimerAction(ctx context.Context, user model.User, chatID int64, action string) error {
	switch action {
	case "start":
		t.Timer.Start(user.UserID)
		msg := api.NewMessage(chatID, "计时开始，专注学习吧！")
		msg.ReplyMarkup = timerKeyboard()
		if _, err := t.sendToBot(msg); err != nil {
			return fmt.Errorf("failed to send timer start: %w", err)
		}
	case "stop":
		if _, err := t.Bot.Request(api.NewChatAction(chatID, api.ChatTyping)); err != nil {
			t.logger.Warn("failed to send typing action", zap.Error(err))
		}
		t.wg.Go(
			func() {
				elapsed, payload, err := t.Timer.Stop(ctx, user.UserID)
				if err != nil {
					t.logger.Error("timer reflection aborted", zap.Error(err))
					t.sendMessageAndHandleErr(chatID, MessageServerError)
					return
				}
				t.sendMessageAndHandleErr(
					chatID,
					fmt.Sprintf(MessageTimerStopFormat, FormatDuration(elapsed), payload.Content),
				)
			},
		)
	case "reset":
		t.Timer.Reset(user.UserID)
		t.sendMessageAndHandleErr(chatID, MessageTimerReset)
	}
	return nil
}

func (t *TelegramUsecase) handlePetAction(user model.User, chatID int64, action string) error {
	var pet model.Pet
	var reply string
	switch action {
	case "feed":
		pet, reply = t.Pet.Feed(user.UserID)
	case "play":
		pet, reply = t.Pet.Play(user.UserID)
	case "study":
		pet, reply = t.Pet.Study(user.UserID)
	default:
		return nil
	}
	t.sendMessageAndHandleErr(chatID, reply)
	t.sendPetStatus(chatID, pet)
	return nil
}

func (t *TelegramUsecase) handleBuddyAction(ctx context.Context, user model.User, chatID int64, parts []string) error {
	switch parts[0] {
	case "search":
		t.sendMessageAndHandleErr(chatID, MessageBuddySearching)
		t.wg.Go(
			func() {
				buddies, err := t.Buddy.Search(ctx, user.UserID)
				if err != nil {
					if errors.Is(err, ErrSearchInProgress) {
						t.sendMessageAndHandleErr(chatID, MessageBuddySearchBusy)
						return
					}
					t.logger.Error("buddy search failed", zap.Error(err))
					t.sendMessageAndHandleErr(chatID, MessageServerError)
					return
				}
				t.sendBuddyList(chatID, buddies)
			},
		)
		return nil
	case "chat", "like", "gift":
		if len(parts) != 2 {
			return fmt.Errorf("bad buddy callback %q", strings.Join(parts, ":"))
		}
		buddyID, err := strconv.Atoi(parts[1])
		if err != nil {
			return fmt.Errorf("bad buddy id %q: %w", parts[1], err)
		}
		switch parts[0] {
		case "chat":
			return t.startBuddyChat(ctx, user, chatID, buddyID)
		case "like":
			liked, err := t.Buddy.ToggleLike(ctx, user.UserID, buddyID)
			if err != nil {
				t.sendMessageAndHandleErr(chatID, MessageServerError)
				return fmt.Errorf("failed to toggle like: %w", err)
			}
			if liked {
				t.sendMessageAndHandleErr(chatID, MessageBuddyLiked)
			} else {
				t.sendMessageAndHandleErr(chatID, MessageBuddyUnliked)
			}
			return nil
		default:
			buddy, err := t.Buddy.GiftEnergy(ctx, user.UserID, buddyID)
			if err != nil {
				t.sendMessageAndHandleErr(chatID, MessageServerError)
				return fmt.Errorf("failed to gift energy: %w", err)
			}
			t.sendMessageAndHandleErr(chatID, fmt.Sprintf(MessageBuddyGiftFormat, buddy.Name))
			return nil
		}
	}
	return nil
}

// startTreeHole opens a fresh venting chat seeded with the welcome
// message and guide questions.
func (t *TelegramUsecase) startTreeHole(ctx context.Context, user model.User, chatID int64) error {
	if err := t.closeActiveSession(ctx, user); err != nil {
		return err
	}
	welcome := t.Session.NewSystemMessage(MessageTreeHoleWelcome, treeHoleAvatar)
	session, err := t.Session.StartSession(ctx, user.UserID, model.FeatureTreeHole, welcome)
	if err != nil {
		t.sendMessageAndHandleErr(chatID, MessageServerError)
		return fmt.Errorf("failed to start tree-hole session: %w", err)
	}
	if err = t.User.UpdateUserActiveSession(ctx, user.UserID, session.SessionID); err != nil {
		t.sendMessageAndHandleErr(chatID, MessageServerError)
		return fmt.Errorf("failed to update active session: %w", err)
	}

	msg := api.NewMessage(chatID, MessageTreeHoleWelcome)
	rows := make([][]api.InlineKeyboardButton, 0, len(treeHoleGuideQuestions))
	for i, question := range treeHoleGuideQuestions {
		rows = append(
			rows,
			api.NewInlineKeyboardRow(api.NewInlineKeyboardButtonData(question, fmt.Sprintf("guide:%d", i))),
		)
	}
	msg.ReplyMarkup = api.NewInlineKeyboardMarkup(rows...)
	if _, err = t.sendToBot(msg); err != nil {
		return fmt.Errorf("failed to send tree-hole welcome: %w", err)
	}
	return nil
}

func (t *TelegramUsecase) startBuddyChat(ctx context.Context, user model.User, chatID int64, buddyID int) error {
	buddy, err := t.Buddy.FindBuddy(ctx, user.UserID, buddyID)
	if err != nil {
		t.sendMessageAndHandleErr(chatID, MessageServerError)
		return fmt.Errorf("failed to find buddy: %w", err)
	}
	if err = t.closeActiveSession(ctx, user); err != nil {
		return err
	}

	avatar := buddy.Avatar
	if avatar == "" {
		avatar = buddyChatAvatar
	}
	welcomeText := fmt.Sprintf(MessageBuddyWelcomeFmt, buddy.Name)
	welcome := t.Session.NewSystemMessage(welcomeText, avatar)
	session, err := t.Session.StartSession(ctx, user.UserID, model.FeatureBuddyChat, welcome)
	if err != nil {
		t.sendMessageAndHandleErr(chatID, MessageServerError)
		return fmt.Errorf("failed to start buddy chat session: %w", err)
	}
	if err = t.User.UpdateUserActiveSession(ctx, user.UserID, session.SessionID); err != nil {
		t.sendMessageAndHandleErr(chatID, MessageServerError)
		return fmt.Errorf("failed to update active session: %w", err)
	}
	t.sendMessageAndHandleErr(chatID, welcomeText)
	return nil
}

// handleBack leaves the current chat. Leaving a buddy chat restores the
// previous search results; any other path lands back on the start menu.
func (t *TelegramUsecase) handleBack(ctx context.Context, user model.User, chatID int64) error {
	var wasBuddyChat bool
	if user.ActiveSession != uuid.Nil {
		session, err := t.Session.GetSession(ctx, user.ActiveSession)
		if err == nil && session.Feature == model.FeatureBuddyChat {
			wasBuddyChat = true
		}
	}
	if err := t.closeActiveSession(ctx, user); err != nil {
		return err
	}
	if wasBuddyChat {
		return t.enterBuddy(ctx, user, chatID, true)
	}
	t.sendMessageAndHandleErr(chatID, MessageBackHome)
	return nil
}

func (t *TelegramUsecase) enterBuddy(ctx context.Context, user model.User, chatID int64, returnFromChat bool) error {
	search, err := t.Buddy.Enter(ctx, user.UserID, returnFromChat)
	if err != nil {
		t.sendMessageAndHandleErr(chatID, MessageServerError)
		return fmt.Errorf("failed to enter buddy view: %w", err)
	}
	if len(search.Buddies) > 0 {
		t.sendBuddyList(chatID, search.Buddies)
		return nil
	}
	msg := api.NewMessage(chatID, MessageBuddyIntro)
	msg.ReplyMarkup = api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(api.NewInlineKeyboardButtonData("开始搜索", "buddy:search")),
	)
	if _, err = t.sendToBot(msg); err != nil {
		return fmt.Errorf("failed to send buddy intro: %w", err)
	}
	return nil
}

func (t *TelegramUsecase) closeActiveSession(ctx context.Context, user model.User) error {
	if user.ActiveSession == uuid.Nil {
		return nil
	}
	if err := t.Session.CloseSession(ctx, user.ActiveSession); err != nil {
		t.logger.Warn("failed to close session", zap.Error(err))
	}
	if err := t.User.UpdateUserActiveSession(ctx, user.UserID, uuid.Nil); err != nil {
		return fmt.Errorf("failed to clear active session: %w", err)
	}
	return nil
}

func (t *TelegramUsecase) sendBuddyList(chatID int64, buddies []model.Buddy) {
	text := strings.Builder{}
	text.WriteString(fmt.Sprintf(MessageBuddyListFormat, len(buddies)))
	rows := make([][]api.InlineKeyboardButton, 0, len(buddies))
	for _, buddy := range buddies {
		text.WriteString(fmt.Sprintf("\n%s · %s · %s", buddy.Name, buddy.Distance, buddy.Subject))
		rows = append(
			rows, api.NewInlineKeyboardRow(
				api.NewInlineKeyboardButtonData("和"+buddy.Name+"聊天", fmt.Sprintf("buddy:chat:%d", buddy.ID)),
				api.NewInlineKeyboardButtonData("点赞", fmt.Sprintf("buddy:like:%d", buddy.ID)),
				api.NewInlineKeyboardButtonData("送能量", fmt.Sprintf("buddy:gift:%d", buddy.ID)),
			),
		)
	}
	msg := api.NewMessage(chatID, text.String())
	msg.ReplyMarkup = api.NewInlineKeyboardMarkup(rows...)
	if _, err := t.sendToBot(msg); err != nil {
		t.logger.Error("failed to send buddy list", zap.Error(err))
	}
}

func (t *TelegramUsecase) sendPetStatus(chatID int64, pet model.Pet) {
	statusText := map[model.PetStatus]string{
		model.PetStatusHappy: "开心",
		model.PetStatusTired: "疲惫",
		model.PetStatusSad:   "难过",
	}[pet.Status]
	msg := api.NewMessage(
		chatID,
		fmt.Sprintf(
			MessagePetStatusFormat,
			pet.Energy, pet.Happiness, pet.Level, pet.Experience, pet.NextLevel, statusText,
		),
	)
	msg.ReplyMarkup = api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData("喂食", "pet:feed"),
			api.NewInlineKeyboardButtonData("玩耍", "pet:play"),
			api.NewInlineKeyboardButtonData("学习", "pet:study"),
		),
	)
	if _, err := t.sendToBot(msg); err != nil {
		t.logger.Error("failed to send pet status", zap.Error(err))
	}
}

func timerKeyboard() api.InlineKeyboardMarkup {
	return api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData("开始", "timer:start"),
			api.NewInlineKeyboardButtonData("结束", "timer:stop"),
			api.NewInlineKeyboardButtonData("重置", "timer:reset"),
		),
	)
}

func (t *TelegramUsecase) sendMessageAndHandleErr(chatID int64, message string) api.Message {
	msg, err := t.sendMessage(chatID, message)
	if err != nil {
		t.logger.Error("failed to send message to bot", zap.Error(err))
	}
	return msg
}

func (t *TelegramUsecase) sendMessage(chatID int64, message string) (api.Message, error) {
	return t.sendToBot(api.NewMessage(chatID, message))
}

func (t *TelegramUsecase) sendToBot(c api.Chattable) (api.Message, error) {
	return t.Bot.Send(c)
}
