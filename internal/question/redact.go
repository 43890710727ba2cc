package question

// Redact returns a copy of q safe to show a learner before the quiz ends:
// correct answers, explanations and key concepts are cleared.
func Redact(q *Question) *Question {
	c := q.Clone()
	if c == nil {
		return nil
	}
	switch v := c.Variant.(type) {
	case TrueFalse:
		v.CorrectAnswer, v.Explanation = false, ""
		c.Variant = v
	case MultipleChoice:
		v.CorrectIndex, v.Explanation = 0, ""
		c.Variant = v
	case MultiSelect:
		v.CorrectIndices, v.Explanation = nil, ""
		c.Variant = v
	case FillInTheBlank:
		v.CorrectAnswers, v.Explanation = nil, ""
		c.Variant = v
	case MatchPairs:
		v.CorrectPairs, v.Explanation = nil, ""
		c.Variant = v
	case InteractiveInterview:
		v.FollowUpRules = nil
		c.Variant = v
	case TopicExplanation:
		v.KeyConcepts = nil
		c.Variant = v
	}
	return c
}
