package proxytests

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lmproxy/proxy-contract-tests/fanout"
	"github.com/lmproxy/proxy-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	defaultScore         = 5
	minScore             = 1
	maxScore             = 10
	targetScore          = 7
	passingScore         = 5
	maxRefineIterations  = 3
	minFinalReportLength = 20
)

var (
	scorePattern = regexp.MustCompile(`\d+`)
	colorWords   = []string{"red", "blue", "yellow", "green"}
)

func DoAgentPatternTests(t *T) {
	t.RequireCapability(servicedef.CapabilityADK)

	t.Run("sequential pipeline", doSequentialPipelineTest)
	t.Run("parallel fan-out", doParallelFanOutTest)
	t.Run("hierarchical coordinator", doCoordinatorTest)
	t.Run("agent as tool", doAgentAsToolTest)
	t.Run("loop refinement", doLoopRefinementTest)
}

// Each stage is a separate agent, so each gets its own session.
func doSequentialPipelineTest(t *T) {
	stages := []struct {
		name      string
		prompt    string
		minLength int
	}{
		{"translate", "You are a translation agent. Translate this Japanese text to English: %s", 10},
		{"summarize", "You are a summarization agent. Summarize this in one short sentence: %s", 10},
		{"format", "You are a formatting agent. Format this as a bullet point starting with • 🤖: %s", 5},
	}
	input := "今日は天気がいいですね。散歩に行きましょう。"
	for _, stage := range stages {
		output := t.Ask(NewSessionID("pipeline-"+stage.name), fmt.Sprintf(stage.prompt, input))
		assert.GreaterOrEqual(t, len(output), stage.minLength, "%s stage output too short: %q", stage.name, output)
		input = output
	}
}

type fanOutReply struct {
	role  string
	reply string
	err   error
}

func doParallelFanOutTest(t *T) {
	const question = "What are the three primary colors? Answer in one short sentence."
	roles := []string{"Analyst", "Critic", "Teacher"}

	var tasks []fanout.Task[fanOutReply]
	for _, role := range roles {
		req := t.runRequest(NewSessionID("fanout-"+strings.ToLower(role)),
			servicedef.UserText(fmt.Sprintf("You are the %s. %s", role, question)))
		tasks = append(tasks, func(ctx context.Context) fanOutReply {
			reply, err := askAgent(ctx, t.Client(), req)
			return fanOutReply{role: role, reply: reply, err: err}
		})
	}
	results := fanout.Gather(t.Context(), t.Config().Fanout.MaxWorkers, tasks, func(_ int, r fanOutReply) {
		t.Debug("[%s] %q (error: %v)", r.role, r.reply, r.err)
	})

	require.Len(t, results, len(roles))
	mentions := 0
	for _, r := range results {
		if !assert.NoError(t, r.err, "%s agent failed", r.role) {
			continue
		}
		if mentionsAny(r.reply, colorWords) {
			mentions++
		}
	}
	assert.GreaterOrEqual(t, mentions, 2, "fewer than two agents mentioned a colour")
}

func doCoordinatorTest(t *T) {
	const coordinator = "You are a coordinator. Route the request to the right specialist (Math, Language or General) " +
		"and answer in the format [AGENT_TYPE]: answer. Request: %s"
	for _, c := range []struct {
		specialist, request, keyword string
	}{
		{"Math", "What is 16 * 8?", "128"},
		{"Language", "What is the past tense of 'run'?", "ran"},
		{"General", "Which planet is known as the Red Planet?", "mars"},
	} {
		reply := t.Ask(NewSessionID("coordinator"), fmt.Sprintf(coordinator, c.request))
		assert.Contains(t, strings.ToLower(reply), c.keyword, "%s request was not answered", c.specialist)
	}
}

func doAgentAsToolTest(t *T) {
	data := t.Ask(NewSessionID("tool-data"),
		"You are a data retrieval agent. Return the current weather in Tokyo as JSON with keys temperature, humidity and city.")
	analysis := t.Ask(NewSessionID("tool-analysis"),
		"You are an analysis agent. Rate the comfort level from 1 to 10 for this weather data: "+data)
	report := t.Ask(NewSessionID("tool-orchestrator"),
		fmt.Sprintf("You are the main orchestrator. Weather data: %s\nComfort analysis: %s\n"+
			"Combine these into a short travel report.", data, analysis))
	assert.Greater(t, len(report), minFinalReportLength, "final report too short: %q", report)
}

func doLoopRefinementTest(t *T) {
	description := t.Ask(NewSessionID("loop-writer"),
		"Write a one-sentence product description for a smart water bottle.")
	score := 0
	for i := 1; i <= maxRefineIterations; i++ {
		rating := t.Ask(NewSessionID("loop-critic"),
			"Rate this product description from 1 to 10. Reply with only the number: "+description)
		score = parseScore(rating)
		t.Debug("iteration %d: score %d", i, score)
		if score >= targetScore {
			break
		}
		description = t.Ask(NewSessionID("loop-writer"),
			fmt.Sprintf("Improve this product description (score %d/10): %s", score, description))
	}
	assert.GreaterOrEqual(t, score, passingScore, "final description scored too low: %q", description)
}

// parseScore takes the first integer in a rating reply, clamped to 1..10. A reply without a
// number counts as the default score.
func parseScore(reply string) int {
	var score ldvalue.OptionalInt
	if m := scorePattern.FindString(reply); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			score = ldvalue.NewOptionalInt(n)
		}
	}
	return min(max(score.OrElse(defaultScore), minScore), maxScore)
}

func mentionsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
