package api

import (
	"fmt"
	"strings"

	"github.com/okian/ranking/internal/domain/model"
)

var tooManyPoints = fmt.Sprintf("must not exceed %d", model.MaxPoints)

// createPlayerRequest mirrors the body of POST /players. Pointer fields tell
// a missing or null value apart from a zero one.
type createPlayerRequest struct {
	Pseudo *string `json:"pseudo"`
	Points *int    `json:"points"`
}

func (r createPlayerRequest) complete() bool {
	return r.Pseudo != nil && r.Points != nil
}

func (r createPlayerRequest) validate() error {
	if strings.TrimSpace(*r.Pseudo) == "" {
		return &model.ValidationError{Field: "PlayerCreateRequest.pseudo", Reason: "should not be empty or blank"}
	}
	if *r.Points < 0 {
		return &model.ValidationError{Field: "PlayerCreateRequest.points", Reason: "must be positive"}
	}
	if *r.Points > model.MaxPoints {
		return &model.ValidationError{Field: "PlayerCreateRequest.points", Reason: tooManyPoints}
	}
	return nil
}

// updatePlayerRequest mirrors the body of PUT /players/{pseudo}.
type updatePlayerRequest struct {
	Points *int `json:"points"`
}

func (r updatePlayerRequest) complete() bool {
	return r.Points != nil
}

func (r updatePlayerRequest) validate() error {
	if *r.Points < 0 {
		return &model.ValidationError{Field: "PlayerUpdateRequest.points", Reason: "must be positive"}
	}
	if *r.Points > model.MaxPoints {
		return &model.ValidationError{Field: "PlayerUpdateRequest.points", Reason: tooManyPoints}
	}
	return nil
}

type playerResponse struct {
	Pseudo string `json:"pseudo"`
	Points int    `json:"points"`
}

type rankedPlayerResponse struct {
	Player playerResponse `json:"player"`
	Rank   int            `json:"rank"`
}

func toRankedPlayerResponse(rp model.RankedPlayer) rankedPlayerResponse {
	return rankedPlayerResponse{
		Player: playerResponse{Pseudo: rp.Pseudo(), Points: rp.Points()},
		Rank:   rp.Rank(),
	}
}

func toRankedPlayerResponses(all []model.RankedPlayer) []rankedPlayerResponse {
	out := make([]rankedPlayerResponse, 0, len(all))
	for _, rp := range all {
		out = append(out, toRankedPlayerResponse(rp))
	}
	return out
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
