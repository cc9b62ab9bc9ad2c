// Package payment validates donations and relays them to the backend checkout.
package payment

import (
	"context"
	"strings"

	"jobprep/internal/errors"
	"jobprep/internal/types"
	"jobprep/internal/validation"
)

const (
	MsgAmountRequired   = "후원 금액을 선택해주세요."
	MsgAmountInvalid    = "올바른 후원 금액을 선택해주세요."
	MsgDonorNameTooLong = "후원자 이름은 100자 이하로 입력해주세요."
	MsgMessageTooLong   = "메시지는 500자 이하로 입력해주세요."
	MsgMissingFields    = "필수 정보가 누락되었습니다."
	MsgRequestFailed    = "후원 처리 중 오류가 발생했습니다."
	MsgConfirmFailed    = "결제 승인 중 오류가 발생했습니다."
)

// Amounts are the selectable donation amounts in won.
var Amounts = []int{1000, 2000, 3000, 4000, 5000}

// API is the part of the backend client donations need.
type API interface {
	RequestPayment(ctx context.Context, req types.DonationRequest) (*types.PaymentSession, error)
	ConfirmPayment(ctx context.Context, conf types.PaymentConfirmation) (*types.PaymentReceipt, error)
}

// Service validates and forwards donation calls.
type Service struct {
	api    API
	logger *errors.Logger
}

func NewService(api API, logger *errors.Logger) *Service {
	return &Service{api: api, logger: logger}
}

// Validate checks the amount step and the text limits.
func Validate(req types.DonationRequest) error {
	fe, err := check(req)
	if err != nil {
		return err
	}
	if len(fe) == 0 {
		return nil
	}
	msg := MsgAmountInvalid
	switch f := fe[0]; {
	case f.Field == "amount" && f.Rule == "required":
		msg = MsgAmountRequired
	case f.Field == "donor_name":
		msg = MsgDonorNameTooLong
	case f.Field == "message":
		msg = MsgMessageTooLong
	}
	return errors.NewValidationError(errors.ErrCodeInvalidInput, msg, fe).WithContext("fields", []validation.FieldError(fe))
}

// ValidateConfirmation checks that the gateway redirect carried every field.
func ValidateConfirmation(conf types.PaymentConfirmation) error {
	fe, err := check(conf)
	if err != nil {
		return err
	}
	if len(fe) == 0 {
		return nil
	}
	return errors.NewValidationError(errors.ErrCodeInvalidInput, MsgMissingFields, fe).WithContext("fields", []validation.FieldError(fe))
}

func check(v any) (validation.FieldErrors, error) {
	err := validation.ValidateStruct(v)
	if err == nil {
		return nil, nil
	}
	if fe := validation.ToFieldErrors(err); len(fe) > 0 {
		return fe, nil
	}
	return nil, errors.NewInternalError(errors.ErrCodeInvalidInput, MsgRequestFailed, err)
}

// Request validates req and opens a checkout session.
func (s *Service) Request(ctx context.Context, req types.DonationRequest) (*types.PaymentSession, error) {
	req.DonorName = strings.TrimSpace(req.DonorName)
	req.Message = strings.TrimSpace(req.Message)
	if err := Validate(req); err != nil {
		return nil, err
	}

	sess, err := s.api.RequestPayment(ctx, req)
	if err != nil {
		appErr := errors.NewNetworkError(errors.ErrCodeNetworkFailed, backendOr(err, MsgRequestFailed), err).
			WithContext("amount", req.Amount)
		s.logger.LogError(appErr, "Donation request failed")
		return nil, appErr
	}
	s.logger.Info("Donation checkout opened", "order_id", sess.OrderID, "amount", sess.Amount)
	return sess, nil
}

// Confirm completes a donation after the gateway redirect.
func (s *Service) Confirm(ctx context.Context, conf types.PaymentConfirmation) (*types.PaymentReceipt, error) {
	if err := ValidateConfirmation(conf); err != nil {
		return nil, err
	}

	receipt, err := s.api.ConfirmPayment(ctx, conf)
	if err != nil {
		appErr := errors.NewNetworkError(errors.ErrCodeNetworkFailed, backendOr(err, MsgConfirmFailed), err).
			WithContext("order_id", conf.OrderID)
		s.logger.LogError(appErr, "Donation confirm failed")
		return nil, appErr
	}
	s.logger.Info("Donation confirmed",
		"order_id", conf.OrderID,
		"status", receipt.Donation.PaymentStatus,
		"method", receipt.Donation.PaymentMethod)
	return receipt, nil
}

// backendOr keeps the backend's own message, such as an amount mismatch, when it sent one.
func backendOr(err error, fallback string) string {
	if appErr, ok := errors.As(err); ok {
		if _, hasStatus := appErr.Context["status"]; hasStatus && appErr.Message != "" {
			return appErr.Message
		}
	}
	return fallback
}
