package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerSet(t *testing.T) {
	a := NewAnswerSet(3)
	assert.False(t, a.Complete())
	assert.Equal(t, 0, a.FirstUnanswered())

	one, five := 1, 5
	a[0], a[2] = &one, &five
	assert.Equal(t, 2, a.Answered())
	assert.Equal(t, 1, a.FirstUnanswered())

	raw, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `[1,null,5]`, string(raw))
}

func TestAssessmentResultDecodesStringDecimals(t *testing.T) {
	payload := `{
		"communication": "4.25", "responsibility": 3, "problem_solving": "bad",
		"growth": "2.00", "stress": 1.5, "adaptation": null,
		"exaggeration_flag": true, "type_label": "조율형",
		"created_at": "2025-03-01T10:00:00+09:00"
	}`
	var r AssessmentResult
	require.NoError(t, json.Unmarshal([]byte(payload), &r))

	assert.Equal(t, ScoreVector{Communication: 4.25, Responsibility: 3, Growth: 2, Stress: 1.5}, r.Scores)
	assert.True(t, r.AttentionCheckPass, "absent attention check defaults to passed")
	assert.True(t, r.ExaggerationFlag)
	assert.Equal(t, "조율형", r.TypeLabel)
	require.NotNil(t, r.CreatedAt)

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	var back AssessmentResult
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, r.Scores, back.Scores)
}

func TestResumeDraftItemEditing(t *testing.T) {
	d := DefaultResumeDraft()
	require.NoError(t, d.AddItem(SectionEducations))
	require.NoError(t, d.SetField(SectionEducations, 1, "school", "서울대학교"))
	assert.Equal(t, 2, d.SectionLen(SectionEducations))

	item, err := d.Item(SectionEducations, 1)
	require.NoError(t, err)
	assert.Equal(t, "서울대학교", item["school"])

	require.NoError(t, d.RemoveItem(SectionEducations, 0))
	assert.Equal(t, "서울대학교", d.Educations[0].School)

	assert.Error(t, d.SetField(SectionCertificates, 0, "nope", "x"))
	assert.Error(t, d.RemoveItem(SectionTrainings, 4))
	assert.Error(t, d.AddItem("hobbies"))
}

func TestResultPayloadAcceptsBareResult(t *testing.T) {
	var wrapped ResultPayload
	require.NoError(t, json.Unmarshal([]byte(`{"message":"ok","result":{"growth":"3.5"},"analysis":{"work_style":"분석형"}}`), &wrapped))
	assert.Equal(t, 3.5, wrapped.Result.Scores[Growth])
	require.NotNil(t, wrapped.Analysis)
	assert.Equal(t, "분석형", wrapped.Analysis.WorkStyle)

	var bare ResultPayload
	require.NoError(t, json.Unmarshal([]byte(`{"growth":4,"stress":"2"}`), &bare))
	assert.Equal(t, ScoreVector{Growth: 4, Stress: 2}, bare.Result.Scores)
	assert.Nil(t, bare.Analysis)
}
