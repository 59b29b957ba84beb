package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// SourceType tags the evidence channel a claim was extracted from.
// The set is open: unknown source types are tolerated and scored with the
// configured fallback weight.
type SourceType string

const (
	// Owner/official channels.
	SourceWebsite   SourceType = "website"
	SourcePhoneCall SourceType = "phone_call"
	SourceEmail     SourceType = "email"

	// High-coverage platform channels.
	SourceGooglePost     SourceType = "google_post"
	SourceGoogleQA       SourceType = "google_qa"
	SourceGoogleReview   SourceType = "google_review"
	SourceYelpReview     SourceType = "yelp_review"
	SourceYelpPhoto      SourceType = "yelp_photo"
	SourceFacebookPost   SourceType = "facebook_post"
	SourceInstagramPost  SourceType = "instagram_post"
	SourceInstagramCmnt  SourceType = "instagram_comment"
	SourceMenuPDF        SourceType = "menu_pdf"
	SourceResyEvent      SourceType = "resy_event"
	SourceOpenTableEvent SourceType = "opentable_event"
	SourceUntappdMenu    SourceType = "untappd_menu"
	SourceBeerMenu       SourceType = "beermenu"
)

// Specificity ranks how precisely a claim pins down its value.
type Specificity string

const (
	SpecificityExact       Specificity = "exact"       // "3:00pm - 6:00pm"
	SpecificityApproximate Specificity = "approximate" // "around 3-6pm"
	SpecificityVague       Specificity = "vague"       // "afternoon"
	SpecificityImplied     Specificity = "implied"     // "after work specials"
)

// Modality describes how the value was extracted from its source.
type Modality string

const (
	ModalityStructuredData Modality = "structured_data"
	ModalityVoice          Modality = "voice"
	ModalityText           Modality = "text"
	ModalityImageOCR       Modality = "image_ocr"
)

// AgentType identifies which extraction agent produced a claim.
type AgentType string

const (
	AgentSite        AgentType = "site_agent"
	AgentGoogle      AgentType = "google_agent"
	AgentYelp        AgentType = "yelp_agent"
	AgentVoiceVerify AgentType = "voice_verify"
	AgentSocial      AgentType = "social_agent"
)

// Claim is one atomic assertion from one evidence agent about one field of
// one venue. Claims are immutable inputs: the engine reads them and never
// writes them back.
type Claim struct {
	ID           string    `json:"claim_id"`
	AgentType    AgentType `json:"agent_type,omitempty"`
	AgentVersion string    `json:"agent_version,omitempty"`

	SourceType SourceType `json:"source_type"`
	SourceURL  string     `json:"source_url,omitempty"`

	FieldPath  string `json:"field_path"`
	FieldValue Value  `json:"field_value"`

	Confidence  float64     `json:"confidence"`
	Specificity Specificity `json:"specificity"`
	Modality    Modality    `json:"modality"`

	// ObservedAt is when the underlying fact was true, not when it was
	// scraped. ExtractedAt is scrape time, carried for audit only.
	ObservedAt  time.Time `json:"observed_at"`
	ExtractedAt time.Time `json:"extracted_at,omitempty"`

	// Provenance for audit; never scored.
	RawSnippet string `json:"raw_snippet,omitempty"`
}

// Validate checks the claim invariants. A claim that fails here is rejected
// at consensus time rather than silently down-weighted.
func (c *Claim) Validate() error {
	if c.ID == "" {
		return eris.New("model: claim missing id")
	}
	if c.FieldPath == "" {
		return eris.Errorf("model: claim %s has empty field_path", c.ID)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return eris.Errorf("model: claim %s confidence %.3f outside [0,1]", c.ID, c.Confidence)
	}
	if c.SourceType == "" {
		return eris.Errorf("model: claim %s missing source_type", c.ID)
	}
	if c.ObservedAt.IsZero() {
		return eris.Errorf("model: claim %s missing observed_at", c.ID)
	}
	return nil
}
