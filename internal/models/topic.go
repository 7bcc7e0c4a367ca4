package models

// Topic identifies what a message is about.
type Topic string

// Topic constants. The set is closed; new topics require a catalog entry.
const (
	TopicMentalHealth     Topic = "mental_health"
	TopicFeelingSad       Topic = "feeling_sad"
	TopicFeelingAnxious   Topic = "feeling_anxious"
	TopicSocialMedia      Topic = "social_media"
	TopicPositiveAttitude Topic = "positive_attitude"
	TopicWellBeing        Topic = "well_being"
	TopicGaming           Topic = "gaming"
	TopicGreeting         Topic = "greeting"
	TopicDefault          Topic = "default"
)

// AllTopics lists every topic in a stable order.
var AllTopics = []Topic{
	TopicMentalHealth,
	TopicFeelingSad,
	TopicFeelingAnxious,
	TopicSocialMedia,
	TopicPositiveAttitude,
	TopicWellBeing,
	TopicGaming,
	TopicGreeting,
	TopicDefault,
}

// IsValidTopic checks if the given topic is one of the known topics.
func IsValidTopic(t Topic) bool {
	switch t {
	case TopicMentalHealth, TopicFeelingSad, TopicFeelingAnxious, TopicSocialMedia,
		TopicPositiveAttitude, TopicWellBeing, TopicGaming, TopicGreeting, TopicDefault:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (t Topic) String() string {
	return string(t)
}
