package request

type SubmitReviewRequest struct {
	Rating  int            `json:"rating" validate:"required,min=1,max=5"`
	Aspects map[string]int `json:"aspects" validate:"required,min=1"`
	Comment *string        `json:"comment,omitempty" validate:"omitempty,max=500"`
}
