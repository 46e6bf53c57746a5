package image

import "context"

// Params are the generation knobs shared by every prompt in a batch. They
// are fixed once a request is built.
type Params struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	CfgScale float64 `json:"cfg_scale"`
	Steps    int     `json:"steps"`
	Samples  int     `json:"samples"`
}

// Artifact is one generated image: its encoded payload and the seed the
// service used to produce it.
type Artifact struct {
	Base64 string
	Seed   int64
}

type Status int

const (
	StatusSuccess Status = iota
	StatusRateLimited
	StatusClientError
	StatusTransportFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRateLimited:
		return "rate_limited"
	case StatusClientError:
		return "client_error"
	default:
		return "transport_failure"
	}
}

// Result classifies one submission. Exactly one of the classification
// values applies; callers never see a raw transport error.
type Result struct {
	Status    Status
	Artifacts []Artifact // StatusSuccess, ordered as the submitted prompts
	Code      int        // StatusClientError
	Body      string     // StatusClientError
	Cause     error      // StatusTransportFailure
}

// Generator submits one batch of prompts to the generation service in a
// single call and classifies the outcome. It persists nothing.
type Generator interface {
	Submit(ctx context.Context, prompts []string, params Params) Result
}
