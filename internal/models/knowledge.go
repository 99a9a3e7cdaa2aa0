package models

// Article is a read-only knowledge-base entry.
type Article struct {
	ID       ID       `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags,omitempty"`
}

// Recommendation is one ranked suggestion for a description.
type Recommendation struct {
	ArticleID ID      `json:"id"`
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet,omitempty"`
	Score     float64 `json:"score"`
}

// Relevance bands the score for display.
func (r Recommendation) Relevance() string {
	if r.Score >= 0.8 {
		return "high"
	} else if r.Score >= 0.6 {
		return "medium"
	}
	return "low"
}

// RecommendationResult is the outcome of a single suggestion query. It
// is never persisted.
type RecommendationResult struct {
	Query string           `json:"query"`
	TopK  int              `json:"top_k"`
	Items []Recommendation `json:"results"`
}

// Top returns the best suggestion, if any.
func (r RecommendationResult) Top() (Recommendation, bool) {
	if len(r.Items) == 0 {
		return Recommendation{}, false
	}
	return r.Items[0], true
}

// FeedbackRecord is a single relevance judgment for a (ticket, article)
// pair. Records are write-once.
type FeedbackRecord struct {
	TicketID  ID     `json:"ticket_id"`
	ArticleID ID     `json:"article_id"`
	Correct   bool   `json:"correct"`
	Notes     string `json:"notes"`
}

// FeedbackEntry is a stored judgment as the backend keeps it. A repeat
// judgment for the same pair overwrites the earlier entry server-side.
type FeedbackEntry struct {
	ID        ID     `json:"id"`
	TicketID  ID     `json:"ticket_id"`
	ArticleID ID     `json:"article_id"`
	Correct   bool   `json:"correct"`
	Notes     string `json:"notes"`
	Timestamp string `json:"timestamp"`
}

// Alert is a system alert as the backend reports it.
type Alert struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Key identifies an alert across polls.
func (a Alert) Key() string { return a.Timestamp + "\x00" + a.Message }
