package mockproxy

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lmproxy/proxy-contract-tests/servicedef"

	"github.com/google/uuid"
)

type session struct {
	id      string
	appName string
	userID  string
	state   map[string]interface{}
	turns   []Turn
	events  []servicedef.Event
	updated time.Time
}

func (s *session) view() servicedef.Session {
	return servicedef.Session{
		ID:             s.id,
		AppName:        s.appName,
		UserID:         s.userID,
		State:          s.state,
		Events:         append([]servicedef.Event{}, s.events...),
		LastUpdateTime: float64(s.updated.UnixNano()) / 1e9,
	}
}

type thread struct {
	id        string
	createdAt int64
	messages  []servicedef.Message
}

// conversation pairs up user and assistant messages, in order.
func (t *thread) conversation() []Turn {
	var turns []Turn
	var pending []string
	for _, m := range t.messages {
		switch m.Role {
		case servicedef.RoleAssistant:
			turns = append(turns, Turn{User: joinLines(pending), Reply: m.Text()})
			pending = nil
		default:
			pending = append(pending, m.Text())
		}
	}
	return turns
}

// unanswered returns the user messages added since the last assistant reply.
func (t *thread) unanswered() []servicedef.Message {
	var ret []servicedef.Message
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == servicedef.RoleAssistant {
			break
		}
		ret = append([]servicedef.Message{t.messages[i]}, ret...)
	}
	return ret
}

type sessionKey struct {
	appName, userID, id string
}

// store holds everything the mock proxy remembers. All access goes through its methods,
// which hold the lock for the whole operation.
type store struct {
	sessions map[sessionKey]*session
	threads  map[string]*thread
	lock     sync.Mutex
}

func newStore() *store {
	return &store{
		sessions: make(map[sessionKey]*session),
		threads:  make(map[string]*thread),
	}
}

func newID(prefix string) string {
	return prefix + uuid.NewString()
}

// createSession returns false if a session with the given id already exists. An empty id
// means the store picks one.
func (s *store) createSession(appName, userID, id string, state map[string]interface{}) (servicedef.Session, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	key := sessionKey{appName, userID, id}
	if _, exists := s.sessions[key]; exists {
		return servicedef.Session{}, false
	}
	if state == nil {
		state = map[string]interface{}{}
	}
	sess := &session{id: id, appName: appName, userID: userID, state: state, updated: time.Now()}
	s.sessions[key] = sess
	return sess.view(), true
}

func (s *store) getSession(appName, userID, id string) (servicedef.Session, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	sess, ok := s.sessions[sessionKey{appName, userID, id}]
	if !ok {
		return servicedef.Session{}, false
	}
	return sess.view(), true
}

func (s *store) listSessions(appName, userID string) []servicedef.Session {
	s.lock.Lock()
	defer s.lock.Unlock()
	ret := []servicedef.Session{}
	for k, sess := range s.sessions {
		if k.appName == appName && k.userID == userID {
			v := sess.view()
			v.Events = nil
			ret = append(ret, v)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].LastUpdateTime < ret[j].LastUpdateTime })
	return ret
}

func (s *store) deleteSession(appName, userID, id string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	key := sessionKey{appName, userID, id}
	if _, ok := s.sessions[key]; !ok {
		return false
	}
	delete(s.sessions, key)
	return true
}

// converse adds a user message to a session, creating the session if necessary, and
// returns the reply along with the events recorded for it.
func (s *store) converse(appName, userID, id string, in Input, respond func([]Turn, Input) string) []servicedef.Event {
	s.lock.Lock()
	defer s.lock.Unlock()
	key := sessionKey{appName, userID, id}
	sess, ok := s.sessions[key]
	if !ok {
		sess = &session{id: id, appName: appName, userID: userID, state: map[string]interface{}{}}
		s.sessions[key] = sess
	}
	text := respond(sess.turns, in)
	sess.turns = append(sess.turns, Turn{User: in.Text, Reply: text})
	sess.updated = time.Now()

	invocationID := newID("e-")
	userEvent := servicedef.Event{
		ID:           uuid.NewString(),
		InvocationID: invocationID,
		Author:       servicedef.RoleUser,
		Content:      &servicedef.Content{Role: servicedef.RoleUser, Parts: []servicedef.Part{{Text: in.Text}}},
	}
	replyEvent := servicedef.Event{
		ID:           uuid.NewString(),
		InvocationID: invocationID,
		Author:       appName,
		Content:      &servicedef.Content{Role: servicedef.RoleModel, Parts: []servicedef.Part{{Text: text}}},
	}
	sess.events = append(sess.events, userEvent, replyEvent)
	return []servicedef.Event{replyEvent}
}

func (s *store) createThread(messages []servicedef.Message) servicedef.Thread {
	s.lock.Lock()
	defer s.lock.Unlock()
	t := &thread{id: newID("thread_"), createdAt: time.Now().Unix()}
	for _, m := range messages {
		t.messages = append(t.messages, t.stamp(m))
	}
	s.threads[t.id] = t
	return servicedef.Thread{ID: t.id, Object: "thread", CreatedAt: t.createdAt}
}

func (t *thread) stamp(m servicedef.Message) servicedef.Message {
	m.ID = newID("msg_")
	m.Object = "thread.message"
	m.ThreadID = t.id
	m.CreatedAt = time.Now().Unix()
	return m
}

func (s *store) getThread(id string) (servicedef.Thread, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return servicedef.Thread{}, false
	}
	return servicedef.Thread{ID: t.id, Object: "thread", CreatedAt: t.createdAt}, true
}

func (s *store) deleteThread(id string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.threads[id]; !ok {
		return false
	}
	delete(s.threads, id)
	return true
}

func (s *store) addMessage(threadID string, m servicedef.Message) (servicedef.Message, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return servicedef.Message{}, false
	}
	m = t.stamp(m)
	t.messages = append(t.messages, m)
	return m, true
}

func (s *store) listMessages(threadID string) ([]servicedef.Message, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return nil, false
	}
	return append([]servicedef.Message{}, t.messages...), true
}

// runThread answers the thread's unanswered user messages with one assistant message.
func (s *store) runThread(threadID, assistantID string, respond func([]Turn, Input) string) (servicedef.Run, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return servicedef.Run{}, false
	}
	run := servicedef.Run{
		ID:          newID("run_"),
		Object:      "thread.run",
		ThreadID:    t.id,
		AssistantID: assistantID,
		Status:      servicedef.RunStatusCompleted,
	}
	pending := t.unanswered()
	if len(pending) == 0 {
		return run, true
	}
	var in Input
	var texts []string
	for _, m := range pending {
		texts = append(texts, m.Text())
		for _, c := range m.Content {
			if c.ImageURL != nil {
				in.Images = append(in.Images, imageTypeOfURL(c.ImageURL.URL))
			}
		}
	}
	in.Text = joinLines(texts)
	reply := t.stamp(servicedef.Message{
		Role:    servicedef.RoleAssistant,
		Content: []servicedef.MessageContent{servicedef.TextContent(respond(t.conversation(), in))},
		RunID:   run.ID,
	})
	t.messages = append(t.messages, reply)
	return run, true
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
