package classifier

import (
	"regexp"

	"github.com/BTreeMap/BuddyBot/internal/models"
)

// All patterns run against the lowercased message and are word-boundary bounded.
var (
	greetingPattern = regexp.MustCompile(`\b(hi|hello|hey|greetings|howdy|morning|afternoon|evening)\b`)

	sadPattern = regexp.MustCompile(`\b(sad|feeling down|depressed|unhappy|miserable|upset|crying|tears|i am sad|i'm sad|i feel sad|i'm feeling sad)\b`)

	anxiousPattern = regexp.MustCompile(`\b(anxious|anxiety|worried|nervous|stress|stressed|panic|fear|afraid|scared|i am anxious|i'm anxious|i feel anxious|i'm feeling anxious)\b`)
)

// keywordTopic pairs a topic with the keywords that select it.
type keywordTopic struct {
	topic   models.Topic
	pattern *regexp.Regexp
}

// keywordTopics is evaluated in order; the first match wins.
var keywordTopics = []keywordTopic{
	{models.TopicMentalHealth, regexp.MustCompile(`\b(mental|health|therapy|counseling)\b`)},
	{models.TopicSocialMedia, regexp.MustCompile(`\b(social|media|facebook|instagram|twitter|tiktok|online|internet|post|like|comment|share|follower)\b`)},
	{models.TopicPositiveAttitude, regexp.MustCompile(`\b(positive|happy|joy|grateful|thankful|appreciate|optimist|hope)\b`)},
	{models.TopicWellBeing, regexp.MustCompile(`\b(well|being|wellness|healthy|exercise|nutrition|sleep|meditate|mindful)\b`)},
	{models.TopicGaming, regexp.MustCompile(`\b(game|gaming|play|video|console|pc|nintendo|xbox|playstation|steam)\b`)},
}

// followUpMarkers are matched as plain substrings, not whole words.
var followUpMarkers = []string{"that", "it", "this"}

// followUpMaxTokens is the token count below which a message counts as a follow-up.
const followUpMaxTokens = 4
