package model

import "github.com/google/uuid"

type Feature string

const (
	FeatureFortune   = Feature("fortune")
	FeatureTimer     = Feature("timer")
	FeatureTreeHole  = Feature("tree-hole")
	FeatureBuddyChat = Feature("buddy-chat")
)

// ChatSession holds an append-only message log for one chat-style feature.
// Pending is true while exactly one generation is in flight for the session.
type ChatSession struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
	Feature   Feature
	Messages  []Message
	Pending   bool
}
