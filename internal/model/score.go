package model

// ScoreCards is the deck shown to every participant.
// "☕" is the coffee-break card.
var ScoreCards = []string{"0", "1/2", "1", "2", "3", "5", "8", "13", "?", "☕"}

func IsScoreCard(score string) bool {
	for _, card := range ScoreCards {
		if card == score {
			return true
		}
	}
	return false
}
