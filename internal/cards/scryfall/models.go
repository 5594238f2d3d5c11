package scryfall

import (
	"errors"
	"fmt"
	"strings"
)

// Card represents a Magic card from Scryfall.
type Card struct {
	// Core fields
	ID       string `json:"id"`
	OracleID string `json:"oracle_id"`

	// Card details
	Name          string     `json:"name"`
	PrintedName   string     `json:"printed_name,omitempty"` // Name on a non-English printing
	Lang          string     `json:"lang"`
	ScryfallURI   string     `json:"scryfall_uri"`
	Layout        string     `json:"layout"`
	ImageURIs     *ImageURIs `json:"image_uris,omitempty"`
	ManaCost      string     `json:"mana_cost,omitempty"`
	CMC           float64    `json:"cmc"`
	TypeLine      string     `json:"type_line"`
	OracleText    string     `json:"oracle_text,omitempty"`
	Colors        []string   `json:"colors,omitempty"`
	ColorIdentity []string   `json:"color_identity"`
	Keywords      []string   `json:"keywords,omitempty"`
	EDHRECRank    int        `json:"edhrec_rank,omitempty"`

	// Card faces (for DFCs, MDFCs, split cards)
	CardFaces []CardFace `json:"card_faces,omitempty"`

	Legalities Legalities `json:"legalities"`
	Prices     Prices     `json:"prices"`

	RelatedURIs map[string]string `json:"related_uris,omitempty"`
}

// CardFace represents one face of a multi-faced card.
type CardFace struct {
	Name       string     `json:"name"`
	ManaCost   string     `json:"mana_cost,omitempty"`
	TypeLine   string     `json:"type_line"`
	OracleText string     `json:"oracle_text,omitempty"`
	ImageURIs  *ImageURIs `json:"image_uris,omitempty"`
}

// ImageURIs contains URLs for card images in various sizes.
type ImageURIs struct {
	Small  string `json:"small"`
	Normal string `json:"normal"`
	Large  string `json:"large"`
}

// Legalities holds the formats this service cares about.
type Legalities struct {
	Commander string `json:"commander"`
	Brawl     string `json:"brawl"`
	Vintage   string `json:"vintage"`
}

// Prices represents the prices of a card in various currencies.
type Prices struct {
	USD       *string `json:"usd,omitempty"`
	USDFoil   *string `json:"usd_foil,omitempty"`
	USDEtched *string `json:"usd_etched,omitempty"`
	EUR       *string `json:"eur,omitempty"`
	EURFoil   *string `json:"eur_foil,omitempty"`
}

// IsCommanderLegal reports whether the card is legal in Commander.
func (c *Card) IsCommanderLegal() bool {
	return c.Legalities.Commander == "legal"
}

// FullOracleText joins the oracle text of every face.
func (c *Card) FullOracleText() string {
	if c.OracleText != "" || len(c.CardFaces) == 0 {
		return c.OracleText
	}
	parts := make([]string, 0, len(c.CardFaces))
	for _, f := range c.CardFaces {
		if f.OracleText != "" {
			parts = append(parts, f.OracleText)
		}
	}
	return strings.Join(parts, "\n")
}

// oracleKey identifies the card across printings and languages.
func (c *Card) oracleKey() string {
	switch {
	case c.OracleID != "":
		return c.OracleID
	case c.ID != "":
		return c.ID
	}
	return strings.ToLower(strings.TrimSpace(c.Name))
}

// DisplayName is the name as printed, falling back to the English name.
func (c *Card) DisplayName() string {
	if c.PrintedName != "" {
		return c.PrintedName
	}
	return c.Name
}

// IsCompanion reports whether the card has the companion keyword.
func (c *Card) IsCompanion() bool {
	for _, k := range c.Keywords {
		if strings.EqualFold(k, "companion") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(c.FullOracleText()), "companion —")
}

// SearchResult represents search results from Scryfall.
type SearchResult struct {
	Object     string `json:"object"`
	TotalCards int    `json:"total_cards"`
	HasMore    bool   `json:"has_more"`
	NextPage   string `json:"next_page,omitempty"`
	Data       []Card `json:"data"`
}

// APIError represents an error response from the Scryfall API.
type APIError struct {
	Object   string   `json:"object"`
	Code     string   `json:"code"`
	Status   int      `json:"status"`
	Details  string   `json:"details"`
	Type     string   `json:"type,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Details)
	}
	return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Code)
}

// NotFoundError represents a 404 error from the API.
type NotFoundError struct {
	URL string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.URL)
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
