package service

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"GazetteHere-App/internal/domain/model"
)

// FallbackResponder は生成バックエンドが使えない時のキーワードベースの応答
type FallbackResponder interface {
	// OpeningStatement 新しい場所に到着した時の最初の説明（テンプレートからランダムに選ぶ）
	OpeningStatement(lc *model.LocationContext) string
	// Answer ユーザーの質問にキーワードで応答する（同じキーワードなら常に同じ応答）
	Answer(userMessage string, lc *model.LocationContext) string
}

type topicRule struct {
	keywords []string
	template func(place string) string
}

// 先にマッチしたものが優先される
var topicRules = []topicRule{
	{
		keywords: []string{"history", "historical"},
		template: func(place string) string {
			return fmt.Sprintf("The history of %s is fascinating! This area has seen many changes over the centuries. Ancient settlements, medieval developments, and modern transformations have all shaped what you see today. Local museums and historical societies often preserve artifacts and stories from different eras. Archaeological evidence suggests continuous human habitation in this region, with each period leaving its own cultural fingerprint.", place)
		},
	},
	{
		keywords: []string{"agriculture", "farming", "crops"},
		template: func(string) string {
			return "Agriculture in this region has been the backbone of the local economy for generations. The climate and soil conditions make it particularly suitable for certain crops and livestock. Traditional farming methods have evolved with modern technology, but many local farms still maintain sustainable practices passed down through families. Local markets often feature seasonal produce that reflects the agricultural calendar of the area."
		},
	},
	{
		keywords: []string{"food", "cuisine", "local dishes"},
		template: func(string) string {
			return "The local cuisine reflects the agricultural abundance and cultural heritage of this area. Traditional recipes often feature locally sourced ingredients and cooking methods that have been refined over generations. Seasonal specialties showcase the best of what the land produces, while local restaurants and markets offer both traditional and modern interpretations of regional flavors."
		},
	},
	{
		keywords: []string{"culture", "traditions", "customs"},
		template: func(string) string {
			return "The cultural traditions of this area are deeply rooted in its geography and history. Local festivals, crafts, and customs often celebrate the changing seasons and community milestones. Traditional arts and crafts reflect both practical needs and artistic expression, with techniques often passed down through generations. Community gatherings and celebrations maintain strong social bonds and cultural continuity."
		},
	},
	{
		keywords: []string{"nature", "wildlife", "landscape"},
		template: func(string) string {
			return "The natural landscape here offers a diverse ecosystem with unique flora and fauna. The geographical features have been shaped by natural processes over thousands of years, creating habitats that support various species. Conservation efforts help maintain the delicate balance between human activity and natural preservation. The changing seasons bring different opportunities to observe wildlife and appreciate the natural beauty of the region."
		},
	},
}

var openingTemplates = []string{
	"You are currently in the area of %s. This region has a rich history dating back centuries, with fascinating stories of local culture, agriculture, and notable landmarks. The area is known for its unique geographical features and traditional practices that have been passed down through generations. Would you like to know more about the local history, agriculture, or cultural traditions?",
	"Welcome to %s! This area is characterized by its distinctive landscape and local heritage. The region has been shaped by both natural forces and human activity over many centuries. Local industries and agriculture have played important roles in the community's development. What aspect of this area interests you most - perhaps the local cuisine, historical significance, or natural features?",
	"You've arrived in %s, a location with its own unique character and story. This area has been home to various communities throughout history, each leaving their mark on the local culture and landscape. The region is known for specific agricultural practices, local crafts, or geographical features that make it distinctive. Would you like to explore the area's history, learn about local traditions, or discover what makes this place special?",
}

type fallbackResponder struct {
	pick func(n int) int
}

// NewFallbackResponder は新しいFallbackResponderを作成
func NewFallbackResponder() FallbackResponder {
	return &fallbackResponder{pick: rand.IntN}
}

// NewFallbackResponderWithPicker オープニングの選択関数を差し替えたFallbackResponderを作成（テスト用）
func NewFallbackResponderWithPicker(pick func(n int) int) FallbackResponder {
	return &fallbackResponder{pick: pick}
}

func (f *fallbackResponder) OpeningStatement(lc *model.LocationContext) string {
	place := "this location"
	if lc != nil && lc.DisplayName != "" {
		place = lc.DisplayName
	}
	return fmt.Sprintf(openingTemplates[f.pick(len(openingTemplates))], place)
}

func (f *fallbackResponder) Answer(userMessage string, lc *model.LocationContext) string {
	message := strings.ToLower(userMessage)
	place := firstNonEmptyString(lc.Country(), "this region")

	for _, rule := range topicRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(message, keyword) {
				return rule.template(place)
			}
		}
	}

	return fmt.Sprintf("That's an interesting question about this area! While I'd love to provide more specific details, I can tell you that %s has many fascinating aspects to explore. Local visitor centers, museums, and community resources are excellent sources for detailed information about the unique characteristics that make this place special. Is there a particular aspect of the area you'd like to explore further?", place)
}

func firstNonEmptyString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
