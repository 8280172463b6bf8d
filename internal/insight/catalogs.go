package insight

// Coach is the catalog of the AI-flavoured weekly report.
var Coach = Catalog{
	Consistency: Table{
		{Match: activeDaysAtLeast(6), Message: "🔥 Amazing consistency! You're absolutely crushing it! Your dedication is inspiring!"},
		{Match: activeDaysAtLeast(4), Message: "💪 Great consistency! Push for 6 days next week to reach elite athlete level!"},
		{Match: activeDaysAtLeast(2), Message: "👍 Good foundation! Aim for 4-5 workout days next week to build unstoppable momentum!"},
		{Match: always, Message: "🎯 Every champion starts somewhere! Let's target 3 solid workout days next week!"},
	},
	Performance: Table{
		{Match: averageAbove(45), Message: "🏆 Your workout intensity is phenomenal! You're building serious athletic endurance."},
		{Match: averageAbove(30), Message: "⚡ Solid training sessions! Consider adding 10-15 more minutes for explosive results."},
		{Match: always, Message: "🌟 Great start! Extend to 30+ minutes per session to unlock your full potential."},
	},
	Motivation: Table{
		{Match: caloriesAbove(2000), Message: "🔥 You torched over 2000 calories this week! Your metabolism is thanking you!"},
		{Match: caloriesAbove(1000), Message: "💪 Great calorie burn! Push past 2000 next week for maximum fat-burning benefits!"},
		{Match: always, Message: "🎯 Every calorie burned counts! Aim for 1500+ calories next week to accelerate results!"},
	},
}

// Plain is the catalog of the plain weekly summary. It carries no motivational table.
var Plain = Catalog{
	Consistency: Table{
		{Match: activeDaysAtLeast(6), Message: "🔥 Amazing consistency! You're on fire! Keep this incredible momentum going next week!"},
		{Match: activeDaysAtLeast(4), Message: "💪 Great consistency! Push for 6 days next week to reach elite level!"},
		{Match: activeDaysAtLeast(2), Message: "👍 Good start! Aim for 4-5 workout days next week to build stronger habits!"},
		{Match: always, Message: "🎯 Every journey starts with a single step! Let's aim for 3 workout days next week!"},
	},
	Performance: Table{
		{Match: averageAbove(45), Message: "🏆 Your workout intensity is impressive! You're building serious endurance."},
		{Match: averageAbove(30), Message: "⚡ Solid workout sessions! Consider adding 10-15 more minutes for even better results."},
		{Match: always, Message: "🌟 Great start! Try extending your sessions to 30+ minutes for optimal benefits."},
	},
}
