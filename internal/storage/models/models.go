package models

import "time"

// GeneratedDeck is one stored generation result. Payload holds the full
// deck as JSON; the other columns are denormalized for listing.
type GeneratedDeck struct {
	ID            string
	Commanders    string // names joined with " + "
	ColorIdentity string
	TotalCards    int
	LandCount     int
	Budget        float64
	TotalSpend    float64
	Currency      string
	Provider      string
	WarningCount  int
	Payload       []byte
	CreatedAt     time.Time
}

// CachedCard is a card lookup response stored by normalized name.
type CachedCard struct {
	NameKey   string
	Name      string
	Payload   []byte
	FetchedAt time.Time
}
