package proxytests

import (
	"github.com/lmproxy/proxy-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionBatchSize = 3

func DoSessionTests(t *T) {
	t.RequireCapability(servicedef.CapabilityADK)

	t.Run("lifecycle", func(t *T) {
		before := len(t.ListSessions())

		session := t.CreateSession()
		assert.Equal(t, 201, session.Status)
		assert.Len(t, t.ListSessions(), before+1)
		assert.Equal(t, 200, t.GetSession(session.ID))

		assert.Equal(t, 204, session.Delete(t.Context()))
		assert.Len(t, t.ListSessions(), before)
	})

	t.Run("create and delete several", func(t *T) {
		before := len(t.ListSessions())

		var sessions []*AgentSession
		for i := 0; i < sessionBatchSize; i++ {
			sessions = append(sessions, t.CreateSession())
		}
		ids := make(map[string]bool)
		for _, s := range sessions {
			ids[s.ID] = true
		}
		require.Len(t, ids, sessionBatchSize, "session ids are not unique")
		assert.Len(t, t.ListSessions(), before+sessionBatchSize)

		for _, s := range sessions {
			assert.Equal(t, 204, s.Delete(t.Context()))
		}
		assert.Len(t, t.ListSessions(), before)
	})
}
