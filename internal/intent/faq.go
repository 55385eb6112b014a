package intent

import (
	"fmt"
	"strings"
)

// VIPPricingReply is the canned answer for VIP pricing questions. The exact
// wording is load-bearing: marketing copy and tests both reference it.
const VIPPricingReply = "1 week free, then $17/month. Upgrades unlock by invitation (Plus $27, Elite $37). Cancel anytime."

// faqMap maps lowercase trigger substrings to canned replies. First match in
// declaration order wins.
var faqMap = []struct {
	trigger string
	reply   string
}{
	{"how much is vip", VIPPricingReply},
	{"how much is the vip", VIPPricingReply},
	{"vip cost", VIPPricingReply},
	{"cost of vip", VIPPricingReply},
	{"price of vip", VIPPricingReply},
	{"vip price", VIPPricingReply},
	{"what is vip", "VIP is my inner circle: unlimited texts, first dibs on deals, and me on call 24/7. " + VIPPricingReply},
	{"cancel anytime", "Yep - cancel whenever, no hoops, no guilt trip. Manage it from your receipt email."},
	{"how do i cancel", "Open your receipt email and hit manage membership - one tap and you're out. No hard feelings, babe."},
}

// quizReplies interpolate the configured quiz link. With no link configured
// the triggers are disabled and the text falls through to the next branch.
var quizReplies = []struct {
	trigger string
	format  string
}{
	{"take the quiz", "Take the quiz here, babe - it takes 2 minutes and makes my picks way sharper: %s"},
	{"quiz link", "Quiz link incoming: %s"},
}

func matchFAQ(text, quizURL string) (string, bool) {
	lower := strings.ToLower(text)
	for _, entry := range faqMap {
		if strings.Contains(lower, entry.trigger) {
			return entry.reply, true
		}
	}
	if quizURL != "" {
		for _, entry := range quizReplies {
			if strings.Contains(lower, entry.trigger) {
				return fmt.Sprintf(entry.format, quizURL), true
			}
		}
	}
	return "", false
}
