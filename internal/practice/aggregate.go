package practice

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizforge/internal/model"
)

const (
	// OpenAnswerPassScore is the overlap score at or above which an
	// open answer counts as correct. The threshold is a heuristic kept
	// for compatibility; treat it as tunable, not meaningful.
	OpenAnswerPassScore = 70

	// openAnswerFloorScore is the minimum score for any non-empty open
	// answer. Only an empty answer scores zero.
	openAnswerFloorScore = 10

	// minScoredTokenLen excludes short filler words from the overlap
	// count.
	minScoredTokenLen = 3
)

var tokenSplitRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// GradeAnswer grades one answer against its question. True/false and
// multiple-choice use exact string equality; open questions use the
// word-overlap heuristic.
func GradeAnswer(q model.PracticeQuestion, userAnswer string) model.PracticeAnswer {
	answer := model.PracticeAnswer{
		QuestionID: q.ID,
		UserAnswer: userAnswer,
	}

	if q.Kind == model.KindOpen {
		score := ScoreOpenAnswer(userAnswer, q.CorrectAnswer)
		answer.Score = &score
		answer.IsCorrect = score >= OpenAnswerPassScore
		return answer
	}

	answer.IsCorrect = userAnswer == q.CorrectAnswer
	return answer
}

// ScoreOpenAnswer scores an open answer 0-100 by case-insensitive word
// overlap against the reference answer, counting shared tokens longer
// than minScoredTokenLen, normalized by the reference token count.
func ScoreOpenAnswer(userAnswer, correctAnswer string) int {
	if strings.TrimSpace(userAnswer) == "" {
		return 0
	}

	userTokens := make(map[string]bool)
	for _, t := range scoredTokens(userAnswer) {
		userTokens[t] = true
	}

	reference := scoredTokens(correctAnswer)
	if len(reference) == 0 {
		return openAnswerFloorScore
	}

	shared := 0
	for _, t := range reference {
		if userTokens[t] {
			shared++
		}
	}

	score := shared * 100 / len(reference)
	if score > 100 {
		score = 100
	}
	if score < openAnswerFloorScore {
		score = openAnswerFloorScore
	}
	return score
}

func scoredTokens(s string) []string {
	var tokens []string
	for _, t := range tokenSplitRe.Split(strings.ToLower(s), -1) {
		if len([]rune(t)) > minScoredTokenLen {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Grade grades every answer of a session positionally and aggregates
// them into the session's result. len(userAnswers) must equal
// len(session.Questions).
func Grade(session model.PracticeSession, userAnswers []string) model.PracticeResult {
	answers := make([]model.PracticeAnswer, 0, len(session.Questions))
	correct := 0
	var weakTopics []string
	seenTopic := make(map[string]bool)

	for i, q := range session.Questions {
		a := GradeAnswer(q, userAnswers[i])
		answers = append(answers, a)
		if a.IsCorrect {
			correct++
			continue
		}
		if q.Topic != "" && !seenTopic[q.Topic] {
			seenTopic[q.Topic] = true
			weakTopics = append(weakTopics, q.Topic)
		}
	}

	total := len(session.Questions)
	scorePercent := 0.0
	if total > 0 {
		scorePercent = float64(correct) / float64(total) * 100
	}

	return model.PracticeResult{
		ID:             uuid.NewString(),
		SessionID:      session.ID,
		CourseID:       session.CourseID,
		OwnerID:        session.OwnerID,
		ScorePercent:   scorePercent,
		TotalQuestions: total,
		CorrectCount:   correct,
		IncorrectCount: total - correct,
		Answers:        answers,
		WeakTopics:     weakTopics,
		CompletedAt:    time.Now(),
	}
}

// topWeakTopicCount caps the ranked weak-topic list.
const topWeakTopicCount = 3

// ComputeCourseStats recomputes the course-level aggregate from all
// stored results for one course and user. It derives purely from the
// results and therefore can never drift from them.
func ComputeCourseStats(results []model.PracticeResult) model.CourseWeakTopicStats {
	stats := model.CourseWeakTopicStats{TotalSessions: len(results)}
	if len(results) == 0 {
		return stats
	}

	var scoreSum float64
	freq := make(map[string]int)
	lastSeen := make(map[string]time.Time)

	for _, r := range results {
		scoreSum += r.ScorePercent
		if r.CompletedAt.After(stats.MostRecentCompletedAt) {
			stats.MostRecentCompletedAt = r.CompletedAt
		}
		for _, topic := range r.WeakTopics {
			freq[topic]++
			if r.CompletedAt.After(lastSeen[topic]) {
				lastSeen[topic] = r.CompletedAt
			}
		}
	}

	stats.AverageScorePercent = scoreSum / float64(len(results))

	topics := make([]string, 0, len(freq))
	for topic := range freq {
		topics = append(topics, topic)
	}
	// Rank by frequency, ties broken by most recent occurrence.
	sort.SliceStable(topics, func(i, j int) bool {
		if freq[topics[i]] != freq[topics[j]] {
			return freq[topics[i]] > freq[topics[j]]
		}
		return lastSeen[topics[i]].After(lastSeen[topics[j]])
	})

	if len(topics) > topWeakTopicCount {
		topics = topics[:topWeakTopicCount]
	}
	stats.TopWeakTopics = topics
	return stats
}
