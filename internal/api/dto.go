package api

import (
	"github.com/starford/catdog/internal/session"
)

// ViewResponse describes the item awaiting a decision.
type ViewResponse struct {
	Filename string `json:"filename" example:"cat.001.jpg" validate:"required"`
	Position int    `json:"position" example:"3" validate:"required"`
	Total    int    `json:"total" example:"120" validate:"required"`
	CanUndo  bool   `json:"can_undo"`
	Notice   string `json:"notice,omitempty"`
	ImageURL string `json:"image_url" example:"/api/current/image" validate:"required"`
}

func newViewResponse(v session.View) ViewResponse {
	return ViewResponse{
		Filename: v.Item.Name,
		Position: v.Position,
		Total:    v.Total,
		CanUndo:  v.CanUndo,
		Notice:   v.Notice,
		ImageURL: "/api/current/image",
	}
}

// CurrentResponse is returned by GET /api/current. Exactly one of Item
// and Summary is set once the session has started.
type CurrentResponse struct {
	State   string           `json:"state" example:"awaiting" validate:"required"`
	Item    *ViewResponse    `json:"item,omitempty"`
	Summary *session.Summary `json:"summary,omitempty"`
}

// DecisionRequest is the body of POST /api/decision.
type DecisionRequest struct {
	Decision string `json:"decision" example:"cat" validate:"required"`
	Position int    `json:"position,omitempty" example:"3"`
}

// DecisionResponse acknowledges an accepted decision.
type DecisionResponse struct {
	Decision string `json:"decision" example:"cat" validate:"required"`
	Filename string `json:"filename" example:"cat.001.jpg" validate:"required"`
}
