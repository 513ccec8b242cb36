package mockproxy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Turn is one exchange in a conversation.
type Turn struct {
	User  string
	Reply string
}

// Input is what the responder sees for one new user message.
type Input struct {
	Text   string
	Images []string // MIME types of attached images
}

// Responder produces a deterministic reply from the conversation so far. It knows just enough
// arithmetic and trivia to make conversational tests meaningful: answers depend on the
// conversation's own history and nothing else, so separate conversations cannot leak into
// each other.
type Responder struct{}

var (
	arithmeticPattern = regexp.MustCompile(`\d+(?:\.\d+)?(?:\s*[-+*/x×]\s*\d+(?:\.\d+)?)+`)
	numberPattern     = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	tokenPattern      = regexp.MustCompile(`\d+(?:\.\d+)?|[-+*/x×]`)
	pastTensePattern  = regexp.MustCompile(`past tense of ['"]?([a-z]+)['"]?`)
)

var colorFacts = []struct {
	keyword, color string
}{
	{"sky", "Blue"},
	{"grass", "Green"},
	{"snow", "White"},
	{"sun", "Yellow"},
}

var irregularPastTense = map[string]string{
	"run": "ran", "go": "went", "eat": "ate", "see": "saw", "swim": "swam", "write": "wrote",
}

func (Responder) Reply(history []Turn, in Input) string {
	return reply(history, in, true)
}

func reply(history []Turn, in Input, allowCoordinator bool) string {
	text := strings.TrimSpace(in.Text)
	lower := strings.ToLower(text)

	switch {
	case allowCoordinator && strings.Contains(lower, "coordinator") && strings.Contains(lower, "request:"):
		request := strings.TrimSpace(text[strings.LastIndex(lower, "request:")+len("request:"):])
		return fmt.Sprintf("[%s]: %s", specialistFor(request), reply(nil, Input{Text: request}, false))

	case strings.Contains(lower, "formatting agent"):
		return "• 🤖 " + payload(text)
	case strings.Contains(lower, "summarization agent"):
		return firstSentence(payload(text))
	case strings.Contains(lower, "translation agent") || strings.Contains(lower, "translate"):
		if containsJapanese(text) {
			return "The weather is nice today. Let's go for a walk in the park."
		}
		return payload(text)

	case strings.Contains(lower, "main orchestrator"):
		return "Travel report: Tokyo is 25°C with 60% humidity. Comfort is rated 7/10, " +
			"so it is a pleasant day for sightseeing."
	case strings.Contains(lower, "analysis agent"):
		return "7 - warm with moderate humidity, comfortable for most people."
	case strings.Contains(lower, "data retrieval agent"):
		return `{"temperature": 25, "humidity": 60, "city": "Tokyo"}`

	case strings.Contains(lower, "rate this"):
		return strconv.Itoa(rateDescription(payload(text)))
	case strings.Contains(lower, "improve this"):
		return strings.TrimSpace(payload(text)) + " It tracks every sip, glows when you need a drink," +
			" and syncs your hydration goals to your phone."
	case strings.Contains(lower, "product description"):
		return "A smart water bottle that tracks hydration."

	case strings.Contains(lower, "count from 1 to 5"):
		return "1\n2\n3\n4\n5"
	case strings.Contains(lower, "past tense"):
		if m := pastTensePattern.FindStringSubmatch(lower); m != nil {
			if past, ok := irregularPastTense[m[1]]; ok {
				return past
			}
			return m[1] + "ed"
		}
	case strings.Contains(lower, "red planet"):
		return "Mars"
	case strings.Contains(lower, "primary colors"):
		return "The three primary colors are red, yellow and blue."

	case strings.Contains(lower, "first color"):
		for _, t := range history {
			for _, f := range colorFacts {
				if t.Reply == f.color {
					return f.color
				}
			}
		}
		return "You have not asked me about any colors yet."

	case strings.Contains(lower, "my question and your answer"):
		if len(history) == 0 {
			return "You have not asked me anything yet."
		}
		return fmt.Sprintf("You asked: %s I answered: %s", history[0].User, history[0].Reply)

	case strings.Contains(lower, "original") || strings.Contains(lower, "first number"):
		if n, ok := firstNumber(history); ok {
			return formatNumber(n)
		}
		return "There is no earlier number to recall."
	case strings.Contains(lower, "double") || strings.Contains(lower, "multiply that") ||
		strings.Contains(lower, "multiply it"):
		if n, ok := lastNumber(history); ok {
			return formatNumber(n * 2)
		}
		return "There is no earlier number to work with."
	case strings.Contains(lower, "final answer"):
		if n, ok := lastNumber(history); ok {
			return formatNumber(n)
		}
		return "There is no earlier answer."
	}

	if expr := arithmeticPattern.FindString(text); expr != "" {
		if n, ok := evaluate(expr); ok {
			return formatNumber(n)
		}
	}
	for _, f := range colorFacts {
		if strings.Contains(lower, f.keyword) {
			return f.color
		}
	}

	if len(in.Images) > 0 {
		return fmt.Sprintf("I received %d image(s) (%s) with your message: %q",
			len(in.Images), strings.Join(in.Images, ", "), text)
	}
	return fmt.Sprintf("Hello! I am a mock assistant. You said: %q", text)
}

func specialistFor(request string) string {
	lower := strings.ToLower(request)
	switch {
	case arithmeticPattern.MatchString(request) || strings.Contains(lower, "calculate"):
		return "Math"
	case strings.Contains(lower, "tense") || strings.Contains(lower, "grammar") || strings.Contains(lower, "translate"):
		return "Language"
	default:
		return "General"
	}
}

// payload returns the text after the instruction, which by convention follows the first colon.
func payload(text string) string {
	if i := strings.Index(text, ":"); i >= 0 {
		return strings.TrimSpace(text[i+1:])
	}
	return text
}

func firstSentence(text string) string {
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		return strings.TrimSpace(text[:i+1])
	}
	return text
}

func containsJapanese(text string) bool {
	for _, r := range text {
		if (r >= 0x3040 && r <= 0x30ff) || (r >= 0x4e00 && r <= 0x9fff) {
			return true
		}
	}
	return false
}

// rateDescription scores longer descriptions higher, so that refinement loops converge.
func rateDescription(desc string) int {
	score := 2 + len(strings.Fields(desc))/3
	if score > 10 {
		score = 10
	}
	return score
}

func firstNumber(history []Turn) (float64, bool) {
	for _, t := range history {
		if n, ok := onlyNumber(t.Reply); ok {
			return n, true
		}
	}
	return 0, false
}

func lastNumber(history []Turn) (float64, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if n, ok := onlyNumber(history[i].Reply); ok {
			return n, true
		}
	}
	return 0, false
}

func onlyNumber(s string) (float64, bool) {
	m := numberPattern.FindString(s)
	if m == "" || strings.TrimSpace(s) != m {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	return n, err == nil
}

// evaluate computes an expression of numbers and + - * / with the usual precedence.
func evaluate(expr string) (float64, bool) {
	tokens := tokenPattern.FindAllString(expr, -1)
	if len(tokens) == 0 || len(tokens)%2 == 0 {
		return 0, false
	}
	var terms []float64
	var ops []string
	current, err := strconv.ParseFloat(tokens[0], 64)
	if err != nil {
		return 0, false
	}
	for i := 1; i < len(tokens); i += 2 {
		n, err := strconv.ParseFloat(tokens[i+1], 64)
		if err != nil {
			return 0, false
		}
		switch tokens[i] {
		case "*", "x", "×":
			current *= n
		case "/":
			if n == 0 {
				return 0, false
			}
			current /= n
		default:
			terms = append(terms, current)
			ops = append(ops, tokens[i])
			current = n
		}
	}
	terms = append(terms, current)
	result := terms[0]
	for i, op := range ops {
		if op == "+" {
			result += terms[i+1]
		} else {
			result -= terms[i+1]
		}
	}
	return result, true
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
