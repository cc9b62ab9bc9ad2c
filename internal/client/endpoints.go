package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"jobprep/internal/errors"
	"jobprep/internal/results"
	"jobprep/internal/types"
)

// StartAssessment creates an assessment for name and returns its questions.
func (c *Client) StartAssessment(ctx context.Context, name string) (*types.AssessmentStart, error) {
	var out types.AssessmentStart
	err := c.doJSON(ctx, http.MethodPost, "/assessment/start/", "/assessment/start/",
		types.AssessmentStartRequest{Name: name}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitAssessment posts the full answer array.
func (c *Client) SubmitAssessment(ctx context.Context, id int, answers []int) (*types.ResultPayload, error) {
	var out types.ResultPayload
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/assessment/%d/submit/", id), "/assessment/{id}/submit/",
		types.AssessmentSubmitRequest{Answers: answers}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AssessmentResult fetches a finished result.
func (c *Client) AssessmentResult(ctx context.Context, id int) (*types.ResultPayload, error) {
	var out types.ResultPayload
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/assessment/%d/result/", id), "/assessment/{id}/result/", nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RecommendJobs returns the jobs closest to the score vector.
func (c *Client) RecommendJobs(ctx context.Context, scores types.ScoreVector) (*types.Recommendations, error) {
	var out types.Recommendations
	req := request{
		method: http.MethodGet,
		path:   "/assessment/recommend/",
		query:  results.RecommendQuery(scores),
	}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartInterview opens a mock interview on topic.
func (c *Client) StartInterview(ctx context.Context, topic string) (*types.InterviewTurn, error) {
	var out types.InterviewTurn
	err := c.doJSON(ctx, http.MethodPost, "/interview/start/", "",
		types.InterviewStartRequest{JobTopic: topic}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AnswerInterview posts the answer to exchangeID.
func (c *Client) AnswerInterview(ctx context.Context, exchangeID int, answer string) (*types.InterviewTurn, error) {
	var out types.InterviewTurn
	err := c.doJSON(ctx, http.MethodPost, "/interview/answer/", "",
		types.InterviewAnswerRequest{ExchangeID: exchangeID, UserAnswer: answer}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Photo is an uploaded picture file.
type Photo struct {
	FileName string
	Data     []byte
}

// SaveResume stores the draft on the backend. With a photo the request is multipart:
// the draft goes in the "data" field and the file in "photo".
func (c *Client) SaveResume(ctx context.Context, draft types.ResumeDraft, photo *Photo) (*types.SavedResume, error) {
	var out types.SavedResume
	if photo == nil {
		if err := c.doJSON(ctx, http.MethodPost, "/resume/", "", draft, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}

	req, err := multipartRequest(draft, photo)
	if err != nil {
		return nil, err
	}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func multipartRequest(draft types.ResumeDraft, photo *Photo) (request, error) {
	data, err := json.Marshal(draft)
	if err != nil {
		return request{}, errors.NewInternalError(errors.ErrCodeInvalidInput, "요청 본문을 만들 수 없습니다.", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("data", string(data)); err != nil {
		return request{}, err
	}
	name := photo.FileName
	if name == "" {
		name = "photo"
	}
	fw, err := mw.CreateFormFile("photo", name)
	if err != nil {
		return request{}, err
	}
	if _, err := fw.Write(photo.Data); err != nil {
		return request{}, err
	}
	if err := mw.Close(); err != nil {
		return request{}, err
	}
	return request{
		method:      http.MethodPost,
		path:        "/resume/",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}, nil
}

// AnalyzeSection asks for feedback on one cover-letter section.
func (c *Client) AnalyzeSection(ctx context.Context, section, content string) (string, error) {
	var out types.Feedback
	err := c.doJSON(ctx, http.MethodPost, "/resume/analyze/", "",
		types.AnalyzeSectionRequest{Section: section, Content: content}, &out)
	if err != nil {
		return "", err
	}
	return out.Feedback, nil
}

// AnalyzeFull asks for feedback on the whole draft.
func (c *Client) AnalyzeFull(ctx context.Context, draft types.ResumeDraft) (string, error) {
	var out types.Feedback
	body := map[string]any{"resumeData": draft}
	if err := c.doJSON(ctx, http.MethodPost, "/resume/analyze-full/", "", body, &out); err != nil {
		return "", err
	}
	return out.Feedback, nil
}

// RequestPayment registers a pending donation and returns the checkout parameters.
func (c *Client) RequestPayment(ctx context.Context, req types.DonationRequest) (*types.PaymentSession, error) {
	var out types.PaymentSession
	if err := c.doJSON(ctx, http.MethodPost, "/homepage/payment/request/", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmPayment completes the donation after the gateway redirect.
func (c *Client) ConfirmPayment(ctx context.Context, conf types.PaymentConfirmation) (*types.PaymentReceipt, error) {
	var out types.PaymentReceipt
	if err := c.doJSON(ctx, http.MethodPost, "/homepage/payment/confirm/", "", conf, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
