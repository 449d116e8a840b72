package model

type Buddy struct {
	ID       int
	Name     string
	Distance string
	Subject  string
	Avatar   string
}

// BuddySearch is the serializable state of one radar search round: kept
// across a detour into a buddy chat and discarded on any other entry path.
type BuddySearch struct {
	Searching bool
	Buddies   []Buddy
	Liked     map[int]bool
}
