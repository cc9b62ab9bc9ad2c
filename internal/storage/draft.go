package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"jobprep/internal/errors"
	"jobprep/internal/types"
)

// Messages shown when saving the draft fails.
const (
	MsgSaveSuccess   = "저장 되었습니다."
	MsgSaveError     = "저장 중 오류가 발생했습니다."
	MsgStorageQuota  = "저장 공간이 부족합니다. 일부 데이터를 삭제한 후 다시 시도해주세요."
	MsgDeleteSuccess = "모든 내용이 삭제되었습니다."
)

// DefaultDraftKey is the record the résumé draft lives under.
const DefaultDraftKey = "resumeData"

// knownFields are owned by the draft; every other top-level field is carried through.
var knownFields = map[string]bool{
	"name": true, "email": true, "phone": true, "address": true, "birthDate": true,
	"gender": true, "applicationField": true, "portfolio": true,
	"educations": true, "experiences": true, "trainings": true, "certificates": true,
	"growthProcess": true, "strengthsWeaknesses": true, "academicLife": true, "motivation": true,
	"photo": true, "photoBase64": true,
}

// SaveRecorder counts draft saves by result.
type SaveRecorder interface {
	RecordDraftSave(ctx context.Context, result string)
}

// DraftStore persists the résumé draft under a single key.
type DraftStore struct {
	backend Backend
	key     string
	logger  *errors.Logger
	metrics SaveRecorder
}

// NewDraftStore wraps backend. An empty key means DefaultDraftKey.
func NewDraftStore(backend Backend, key string, logger *errors.Logger) *DraftStore {
	if key == "" {
		key = DefaultDraftKey
	}
	return &DraftStore{backend: backend, key: key, logger: logger}
}

// WithMetrics sets the save counter.
func (s *DraftStore) WithMetrics(m SaveRecorder) *DraftStore {
	s.metrics = m
	return s
}

// Key returns the storage key.
func (s *DraftStore) Key() string { return s.key }

// Load returns the stored draft merged over the defaults and the stored photo preview.
// Missing or unreadable data yields the defaults.
func (s *DraftStore) Load(ctx context.Context) (types.ResumeDraft, string) {
	raw, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if !stderrors.Is(err, ErrNotFound) {
			s.logger.LogError(err, "Failed to read saved draft", "key", s.key)
		}
		return types.DefaultResumeDraft(), ""
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		s.logger.LogError(err, "Saved draft is not a JSON object", "key", s.key)
		return types.DefaultResumeDraft(), ""
	}
	draft, preview := mergeDraft(fields)
	return draft, preview
}

func mergeDraft(fields map[string]json.RawMessage) (types.ResumeDraft, string) {
	d := types.DefaultResumeDraft()

	scalars := map[string]*string{
		"name": &d.Name, "email": &d.Email, "phone": &d.Phone, "address": &d.Address,
		"birthDate": &d.BirthDate, "gender": &d.Gender, "applicationField": &d.ApplicationField,
		"portfolio": &d.Portfolio, "growthProcess": &d.GrowthProcess,
		"strengthsWeaknesses": &d.StrengthsWeaknesses, "academicLife": &d.AcademicLife,
		"motivation": &d.Motivation,
	}
	for name, target := range scalars {
		var v string
		if raw, ok := fields[name]; ok && json.Unmarshal(raw, &v) == nil {
			*target = v
		}
	}

	decodeSection(fields["educations"], &d.Educations)
	decodeSection(fields["experiences"], &d.Experiences)
	decodeSection(fields["trainings"], &d.Trainings)
	decodeSection(fields["certificates"], &d.Certificates)

	var preview string
	if raw, ok := fields["photoBase64"]; ok {
		_ = json.Unmarshal(raw, &preview)
	}
	return d, preview
}

// decodeSection replaces *target only when raw is a well-formed array.
func decodeSection[T any](raw json.RawMessage, target *[]T) {
	if len(raw) == 0 || raw[0] != '[' {
		return
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return
	}
	*target = items
}

// Save stores draft with preview as photoBase64. Fields written by other pages are kept.
func (s *DraftStore) Save(ctx context.Context, draft types.ResumeDraft, preview string) error {
	record := s.foreignFields(ctx)

	own, err := json.Marshal(draft)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeStorageWriteFailed, MsgSaveError, err)
	}
	var ownFields map[string]json.RawMessage
	if err := json.Unmarshal(own, &ownFields); err != nil {
		return errors.NewInternalError(errors.ErrCodeStorageWriteFailed, MsgSaveError, err)
	}
	for k, v := range ownFields {
		record[k] = v
	}
	record["photo"] = json.RawMessage("null")
	if preview != "" {
		encoded, _ := json.Marshal(preview)
		record["photoBase64"] = encoded
	} else {
		record["photoBase64"] = json.RawMessage("null")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeStorageWriteFailed, MsgSaveError, err)
	}

	if err := s.backend.Set(ctx, s.key, data); err != nil {
		var appErr *errors.AppError
		if stderrors.Is(err, ErrQuotaExceeded) {
			appErr = errors.NewStorageError(errors.ErrCodeStorageQuota, MsgStorageQuota, err)
			s.record(ctx, "quota_exceeded")
		} else {
			appErr = errors.NewStorageError(errors.ErrCodeStorageWriteFailed, MsgSaveError, err)
			s.record(ctx, "error")
		}
		appErr.WithContext("key", s.key).WithContext("bytes", len(data))
		s.logger.LogError(appErr, "Draft save failed")
		return appErr
	}

	s.record(ctx, "ok")
	s.logger.Debug("Draft saved", "key", s.key, "bytes", len(data))
	return nil
}

// foreignFields returns the top-level fields of the stored record the draft does not own.
func (s *DraftStore) foreignFields(ctx context.Context) map[string]json.RawMessage {
	out := map[string]json.RawMessage{}
	raw, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return out
	}
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil {
		return out
	}
	for k, v := range fields {
		if !knownFields[k] {
			out[k] = v
		}
	}
	return out
}

// Clear removes the record entirely.
func (s *DraftStore) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, s.key); err != nil {
		appErr := errors.NewStorageError(errors.ErrCodeStorageWriteFailed, MsgSaveError, err).WithContext("key", s.key)
		s.logger.LogError(appErr, "Draft clear failed")
		return appErr
	}
	s.logger.Info("Draft cleared", "key", s.key)
	return nil
}

func (s *DraftStore) record(ctx context.Context, result string) {
	if s.metrics != nil {
		s.metrics.RecordDraftSave(ctx, result)
	}
}
