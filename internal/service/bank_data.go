package service

import "cognicare/internal/model"

// frequencyOptions is the standard frequency ladder used by most
// baseline questions
func frequencyOptions(maxPoints int) []model.AnswerOption {
	step := maxPoints / 4
	if step < 1 {
		step = 1
	}
	return []model.AnswerOption{
		{Value: "never", Label: "Never", ConcernLevel: model.ConcernNone, Points: 0},
		{Value: "rarely", Label: "Rarely (once a month or less)", ConcernLevel: model.ConcernMild, Points: step},
		{Value: "sometimes", Label: "Sometimes (weekly)", ConcernLevel: model.ConcernModerate, Points: step * 2},
		{Value: "often", Label: "Often (daily or almost daily)", ConcernLevel: model.ConcernConcerning, Points: maxPoints},
	}
}

// baselineQuestions is the fixed 13-question screening battery. The
// questions ask what the caregiver observes about the elder; they are
// never direct cognitive tests administered to the elder.
var baselineQuestions = []model.Question{
	// Memory
	{
		ID:     "memory_1",
		Domain: model.DomainMemory,
		Text:   "How often does {elderName} repeat the same question or story within a short period of time?",
		Type:   model.QuestionTypeFrequency,
		Options: []model.AnswerOption{
			{Value: "never", Label: "Never", ConcernLevel: model.ConcernNone, Points: 0},
			{Value: "rarely", Label: "Rarely", ConcernLevel: model.ConcernMild, Points: 1},
			{Value: "sometimes", Label: "Sometimes", ConcernLevel: model.ConcernModerate, Points: 2},
			{Value: "often", Label: "Often, within the same conversation", ConcernLevel: model.ConcernConcerning, Points: 4},
		},
		Weight:           5,
		TriggerFollowUp:  true,
		ConcernThreshold: []string{"sometimes", "often"},
	},
	{
		ID:               "memory_2",
		Domain:           model.DomainMemory,
		Text:             "Does {elderName} misplace everyday items (keys, glasses, wallet) and fail to retrace their steps to find them?",
		Type:             model.QuestionTypeFrequency,
		Options:          frequencyOptions(4),
		Weight:           4,
		TriggerFollowUp:  true,
		ConcernThreshold: []string{"sometimes", "often"},
	},
	{
		ID:     "memory_3",
		Domain: model.DomainMemory,
		Text:   "Has {elderName} forgotten important recent events, such as a family visit or an appointment from the last few days?",
		Type:   model.QuestionTypeMultipleChoice,
		Options: []model.AnswerOption{
			{Value: "no", Label: "No, recent events are remembered well", ConcernLevel: model.ConcernNone, Points: 0},
			{Value: "details_only", Label: "Only small details are forgotten", ConcernLevel: model.ConcernMild, Points: 1},
			{Value: "some_events", Label: "Some whole events are forgotten", ConcernLevel: model.ConcernModerate, Points: 2},
			{Value: "most_events", Label: "Most recent events are forgotten entirely", ConcernLevel: model.ConcernConcerning, Points: 3},
		},
		Weight:           4,
		TriggerFollowUp:  true,
		ConcernThreshold: []string{"some_events", "most_events"},
	},

	// Orientation
	{
		ID:               "orientation_1",
		Domain:           model.DomainOrientation,
		Text:             "How often does {elderName} seem confused about what day, month, or season it is?",
		Type:             model.QuestionTypeFrequency,
		Options:          frequencyOptions(4),
		Weight:           5,
		TriggerFollowUp:  true,
		ConcernThreshold: []string{"sometimes", "often"},
	},
	{
		ID:     "orientation_2",
		Domain: model.DomainOrientation,
		Text:   "Has {elderName} become lost or disoriented in familiar places, such as their own neighborhood or home?",
		Type:   model.QuestionTypeMultipleChoice,
		Options: []model.AnswerOption{
			{Value: "never", Label: "Never", ConcernLevel: model.ConcernNone, Points: 0},
			{Value: "new_places", Label: "Only in new or unfamiliar places", ConcernLevel: model.ConcernMild, Points: 1},
			{Value: "familiar_outside", Label: "Sometimes in familiar places outside the home", ConcernLevel: model.ConcernConcerning, Points: 3},
			{Value: "at_home", Label: "Even inside their own home", ConcernLevel: model.ConcernConcerning, Points: 4},
		},
		Weight:           5,
		TriggerFollowUp:  true,
		ConcernThreshold: []string{"familiar_outside", "at_home"},
	},

	// Attention
	{
		ID:               "attention_1",
		Domain:           model.DomainAttention,
		Text:             "Does {elderName} have trouble following a conversation, TV program, or book they used to enjoy?",
		Type:             model.QuestionTypeFrequency,
		Options:          frequencyOptions(3),
		Weight:           3,
		TriggerFollowUp:  true,
		ConcernThreshold: []string{"often"},
	},
	{
		ID:               "attention_2",
		Domain:           model.DomainAttention,
		Text:             "How often does {elderName} start a task (cooking, cleaning, paying a bill) and drift away before finishing it?",
		Type:             model.QuestionTypeFrequency,
		Options:          frequencyOptions(3),
		Weight:           3,
		TriggerFollowUp:  true,
		ConcernThreshold: []string{"sometimes", "often"},
	},

	// Language
	{
		ID:               "language_1",
		Domain:           model.DomainLanguage,
		Text:             "Does {elderName} struggle to find common words, or substitute unusual words for everyday things?",
		Type:             model.QuestionTypeFrequency,
		Options:          frequencyOptions(3),
		Weight:           4,
		TriggerFollowUp:  true,
		ConcernThreshold: []string{"sometimes", "often"},
	},
	{
		ID:               "language_2",
		Domain:           model.DomainLanguage,
		Text:             "How often does {elderName} lose the thread mid-sentence or repeat themselves without noticing?",
		Type:             model.QuestionTypeFrequency,
		Options:          frequencyOptions(3),
		Weight:           3,
		TriggerFollowUp:  true,
		ConcernThreshold: []string{"often"},
	},

	// Executive function
	{
		ID:     "executive_1",
		Domain: model.DomainExecutive,
		Text:   "Has {elderName} had new difficulty managing finances, medications, or appointments they previously handled on their own?",
		Type:   model.QuestionTypeMultipleChoice,
		Options: []model.AnswerOption{
			{Value: "no", Label: "No, handles them as before", ConcernLevel: model.ConcernNone, Points: 0},
			{Value: "slower", Label: "Manages, but slower or with occasional mistakes", ConcernLevel: model.ConcernMild, Points: 1},
			{Value: "needs_help", Label: "Needs regular help", ConcernLevel: model.ConcernModerate, Points: 2},
			{Value: "cannot", Label: "Can no longer manage them at all", ConcernLevel: model.ConcernConcerning, Points: 4},
		},
		Weight:           4,
		TriggerFollowUp:  true,
		ConcernThreshold: []string{"needs_help", "cannot"},
	},
	{
		ID:               "executive_2",
		Domain:           model.DomainExecutive,
		Text:             "Does {elderName} show poor judgment in situations where they used to be careful, such as giving money to strangers or leaving the stove on?",
		Type:             model.QuestionTypeFrequency,
		Options:          frequencyOptions(4),
		Weight:           4,
		TriggerFollowUp:  true,
		ConcernThreshold: []string{"sometimes", "often"},
	},

	// Mood / behavior
	{
		ID:     "mood_1",
		Domain: model.DomainMood,
		Text:   "Has {elderName} withdrawn from hobbies, social activities, or people they used to enjoy spending time with?",
		Type:   model.QuestionTypeMultipleChoice,
		Options: []model.AnswerOption{
			{Value: "no", Label: "No change", ConcernLevel: model.ConcernNone, Points: 0},
			{Value: "somewhat", Label: "Somewhat less engaged", ConcernLevel: model.ConcernMild, Points: 1},
			{Value: "noticeably", Label: "Noticeably withdrawn", ConcernLevel: model.ConcernModerate, Points: 2},
			{Value: "completely", Label: "Has stopped almost all activities", ConcernLevel: model.ConcernConcerning, Points: 3},
		},
		Weight:           3,
		TriggerFollowUp:  true,
		ConcernThreshold: []string{"noticeably", "completely"},
	},
	{
		ID:               "mood_2",
		Domain:           model.DomainMood,
		Text:             "How often does {elderName} show sudden mood changes, irritability, or suspicion that is out of character?",
		Type:             model.QuestionTypeFrequency,
		Options:          frequencyOptions(3),
		Weight:           3,
		TriggerFollowUp:  true,
		ConcernThreshold: []string{"sometimes", "often"},
	},
}
