package catalog

import "github.com/BTreeMap/BuddyBot/internal/models"

var builtin = map[models.Topic][]string{
	models.TopicMentalHealth: {
		"💭 It's important to take care of your mental health. Have you tried any relaxation techniques lately?",
		"🧠 Remember that it's okay to not be okay sometimes. Would you like to talk more about how you're feeling?",
		"😌 Taking small breaks throughout the day can really help with stress. Do you have any favorite ways to unwind?",
		"🌱 Self-care isn't selfish, it's necessary. What's one small thing you could do today to take care of yourself?",
		"🤗 Sharing your feelings with others can be really helpful. Do you have someone you trust that you can talk to?",
	},
	models.TopicFeelingSad: {
		"💙 I'm sorry you're feeling down. Do you want to tell me what's been weighing on you?",
		"🫂 It's okay to feel sad. Your feelings are valid and you don't have to go through this alone.",
		"🌧️ Hard days happen to all of us. Is there something small that usually helps you feel a little better?",
		"🕯️ Thank you for sharing how you feel. Would it help to talk about what happened?",
		"🤍 Being gentle with yourself matters right now. Is there someone you trust you could reach out to today?",
	},
	models.TopicFeelingAnxious: {
		"🌬️ Anxiety can feel overwhelming. Try a slow breath in for four counts and out for six. How does that feel?",
		"🧩 It sounds like a lot is on your mind. What's worrying you the most right now?",
		"🌿 When worry builds up, grounding can help. Can you name five things you can see around you?",
		"🤲 Feeling nervous is a normal response to stress. You're handling more than you give yourself credit for.",
		"🛟 You don't have to solve everything at once. What's one thing that feels manageable today?",
	},
	models.TopicSocialMedia: {
		"📱 Social media can be both connecting and overwhelming. How do you feel it affects you?",
		"👥 Finding a balance with social media can be tricky. Have you tried setting time limits for apps?",
		"🔔 Notification overload is real! Have you considered turning off non-essential notifications?",
		"🌐 Social media showcases highlight reels, not reality. It's important to remember that when scrolling.",
		"💬 Online interactions are different from face-to-face ones. Do you notice any differences in how you communicate?",
	},
	models.TopicPositiveAttitude: {
		"☀️ Starting the day with a positive thought can set the tone. Do you have any morning rituals?",
		"😊 Finding small moments of joy throughout the day adds up! What's something small that made you smile today?",
		"🙏 Practicing gratitude can shift our perspective. Is there something you're grateful for right now?",
		"🌈 Even cloudy days have silver linings. What's a positive aspect of a challenging situation you're facing?",
		"💪 You're stronger than you think! What's a challenge you've overcome that you're proud of?",
	},
	models.TopicWellBeing: {
		"🧘 Balance between work and rest is essential for well-being. How do you find that balance?",
		"💤 Quality sleep is so important! Do you have a bedtime routine that helps you rest well?",
		"🏃 Movement can boost our mood significantly. Have you enjoyed any physical activity lately?",
		"🥦 Nourishing our bodies affects how we feel. What's your favorite healthy meal?",
		"🌿 Spending time in nature can be very restorative. Do you have a favorite outdoor spot?",
	},
	models.TopicGaming: {
		"🎮 Gaming can be a great way to relax and have fun! What games have you been enjoying lately?",
		"🕹️ Some games can be really social experiences. Do you prefer playing with friends or solo gaming?",
		"🏆 The sense of achievement in games can be really satisfying. What's a gaming accomplishment you're proud of?",
		"⏱️ It's easy to lose track of time while gaming! Do you have any strategies for balancing game time with other activities?",
		"🎲 Games exercise different skills - problem-solving, creativity, reflexes. What skills do your favorite games help you develop?",
	},
	models.TopicGreeting: {
		"👋 Hello! I'm Buddy Bot. How are you doing today?",
		"🌟 Hi there! It's great to chat with you. How's your day going?",
		"😊 Hey! I'm Buddy Bot, your friendly AI chat companion. What's on your mind?",
		"👋 Hello! I'm here to chat about anything that's on your mind. How are you feeling today?",
		"🌈 Hi! I'm Buddy Bot. I'd love to know how you're doing today!",
	},
	models.TopicDefault: {
		"I'm not sure I understand that completely. Could you tell me more?",
		"That's interesting! Could you elaborate a bit more so I can better respond?",
		"I'd like to hear more about that. Could you share a bit more detail?",
		"I'm learning as we chat. Could you explain a bit more about what you mean?",
		"I want to make sure I understand correctly. Could you share a bit more about that?",
	},
}
