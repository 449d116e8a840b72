package model

type PetStatus string

const (
	PetStatusHappy = PetStatus("happy")
	PetStatusTired = PetStatus("tired")
	PetStatusSad   = PetStatus("sad")
)

// Pet keeps the virtual study pet's stats. Energy and Happiness stay in
// [0, 100]; Experience resets on level-up.
type Pet struct {
	Energy     int
	Happiness  int
	Experience int
	Level      int
	NextLevel  int
	Status     PetStatus
}
