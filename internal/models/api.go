package models

// Backend REST contract

type PredictRequest struct {
	Description string `json:"description"`
	TopK        int    `json:"top_k,omitempty"`
}

type PredictResponse struct {
	Query   string           `json:"query,omitempty"`
	Results []Recommendation `json:"results"`
}

type CreateTicketRequest struct {
	CustomerName string `json:"customer_name"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Status       Status `json:"status"`
	CreatedAt    string `json:"createdAt"`
}

type UpdateTicketRequest struct {
	Status Status `json:"status"`
}

type FeedbackResponse struct {
	Metrics *struct {
		Accuracy float64 `json:"accuracy"`
	} `json:"metrics,omitempty"`
}

type AlertsResponse struct {
	Alerts []Alert `json:"alerts"`
}

type DeleteAlertRequest struct {
	Index int `json:"index"`
}

// AckResponse is the `{success, error}` body several mutations return
// with a 200 status even when they fail.
type AckResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type TriggerAlertRequest struct {
	Message string `json:"message"`
}

type AddArticleRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

type AddArticleResponse struct {
	Message string  `json:"message"`
	Article Article `json:"article"`
}

type EvaluateRequest struct {
	DatasetPath string `json:"dataset_path"`
}

type EvaluateResponse struct {
	DatasetSize int      `json:"dataset_size"`
	Accuracy    *float64 `json:"accuracy"`
	Precision   *float64 `json:"precision,omitempty"`
	Recall      *float64 `json:"recall,omitempty"`
	F1          *float64 `json:"f1,omitempty"`
}

// Console HTTP surface

type SuggestRequest struct {
	Description string `json:"description"`
	TopK        int    `json:"top_k"`
}

type StatusUpdateRequest struct {
	Status Status `json:"status" binding:"required"`
}

type FeedbackRequest struct {
	TicketID  ID     `json:"ticket_id"`
	ArticleID ID     `json:"article_id" binding:"required"`
	Correct   *bool  `json:"correct" binding:"required"`
	Notes     string `json:"notes"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}
