package question

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON writes the question with its variant under "kind"/"data".
func (q Question) MarshalJSON() ([]byte, error) {
	if q.Variant == nil {
		return nil, fmt.Errorf("marshal question %s: missing variant", q.ID)
	}
	data, err := json.Marshal(q.Variant)
	if err != nil {
		return nil, fmt.Errorf("marshal variant: %w", err)
	}

	type alias Question
	return json.Marshal(struct {
		alias
		Kind Kind            `json:"kind"`
		Data json.RawMessage `json:"data"`
	}{alias: alias(q), Kind: q.Variant.Kind(), Data: data})
}

// UnmarshalJSON decodes the envelope written by MarshalJSON. It does not
// validate; call Validate afterwards.
func (q *Question) UnmarshalJSON(b []byte) error {
	type alias Question
	aux := struct {
		*alias
		Kind Kind            `json:"kind"`
		Data json.RawMessage `json:"data"`
	}{alias: (*alias)(q)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	v, err := decodeVariant(aux.Kind, aux.Data)
	if err != nil {
		return err
	}
	q.Variant = v
	return nil
}

func decodeVariant(kind Kind, data json.RawMessage) (Variant, error) {
	switch kind {
	case KindTrueFalse:
		return decodeInto[TrueFalse](data)
	case KindMultipleChoice:
		return decodeInto[MultipleChoice](data)
	case KindMultiSelect:
		return decodeInto[MultiSelect](data)
	case KindFillInTheBlank:
		return decodeInto[FillInTheBlank](data)
	case KindMatchPairs:
		return decodeInto[MatchPairs](data)
	case KindInteractiveInterview:
		return decodeInto[InteractiveInterview](data)
	case KindTopicExplanation:
		return decodeInto[TopicExplanation](data)
	default:
		return nil, fmt.Errorf("unknown question kind %q", kind)
	}
}

func decodeInto[T Variant](data json.RawMessage) (Variant, error) {
	var v T
	if len(data) == 0 {
		return nil, fmt.Errorf("missing %s payload", v.Kind())
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", v.Kind(), err)
	}
	return v, nil
}

// Envelope wraps an Answer for JSON transport as {"kind": ..., "data": ...}.
type Envelope struct {
	Answer Answer
}

// MarshalJSON implements json.Marshaler.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Answer == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(e.Answer)
	if err != nil {
		return nil, fmt.Errorf("marshal answer: %w", err)
	}
	return json.Marshal(struct {
		Kind Kind            `json:"kind"`
		Data json.RawMessage `json:"data"`
	}{Kind: e.Answer.Kind(), Data: data})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Envelope) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		e.Answer = nil
		return nil
	}
	var aux struct {
		Kind Kind            `json:"kind"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	a, err := DecodeAnswer(aux.Kind, aux.Data)
	if err != nil {
		return err
	}
	e.Answer = a
	return nil
}

// DecodeAnswer decodes an answer payload of the given kind.
func DecodeAnswer(kind Kind, data json.RawMessage) (Answer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("missing %s answer payload", kind)
	}
	switch kind {
	case KindTrueFalse:
		return decodeAnswer[TrueFalseAnswer](data)
	case KindMultipleChoice:
		return decodeAnswer[MultipleChoiceAnswer](data)
	case KindMultiSelect:
		return decodeAnswer[MultiSelectAnswer](data)
	case KindFillInTheBlank:
		return decodeAnswer[FillInTheBlankAnswer](data)
	case KindMatchPairs:
		return decodeAnswer[MatchPairsAnswer](data)
	case KindInteractiveInterview:
		return decodeAnswer[InterviewAnswer](data)
	case KindTopicExplanation:
		return decodeAnswer[ExplanationAnswer](data)
	default:
		return nil, fmt.Errorf("unknown answer kind %q", kind)
	}
}

func decodeAnswer[T Answer](data json.RawMessage) (Answer, error) {
	var a T
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode %s answer: %w", a.Kind(), err)
	}
	return a, nil
}
