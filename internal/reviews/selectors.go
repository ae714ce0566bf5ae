package reviews

// Selectors locates the parts of the Google Maps place page the engine reads.
type Selectors struct {
	ConsentButton   string
	FirstResult     string
	ReviewsTab      string
	TotalReviews    string
	ScrollContainer string

	Item          string
	ItemID        string
	ReviewerName  string
	ReviewerInfo  string
	Date          string
	Stars         string
	Text          string
	MoreButton    string
	OwnerResponse string
}

func DefaultSelectors() Selectors {
	return Selectors{
		ConsentButton:   `button:has-text("Accept all"), button:has-text("I agree")`,
		FirstResult:     `div.Nv2PK a.hfpxzc`,
		ReviewsTab:      `button[role="tab"]:has-text("Reviews")`,
		TotalReviews:    `div.jANrlb div.fontBodySmall`,
		ScrollContainer: `div.m6QErb.DxyBCb.kA9KIf.dS8AEf`,

		Item:          `div.jftiEf`,
		ItemID:        "data-review-id",
		ReviewerName:  `div.d4r55`,
		ReviewerInfo:  `div.RfnDt`,
		Date:          `span.rsqaWe`,
		Stars:         `span.kvMYJc`,
		Text:          `span.wiI7pd`,
		MoreButton:    `button.w8nwRe`,
		OwnerResponse: `div.CDe7pd`,
	}
}
