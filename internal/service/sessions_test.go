package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/IgoorDrt/ErroOps-v1/internal/service"
)

func TestSessions(t *testing.T) {
	t.Run("ReportsCurrentStateOnRegistration", func(t *testing.T) {
		s := service.NewSessions()
		s.SignIn("u1")

		var got []bool
		unsubscribe := s.OnAuthStateChanged("u1", func(in bool) { got = append(got, in) })
		defer unsubscribe()

		assert.Equal(t, []bool{true}, got)
	})

	t.Run("NotifiesTransitionsOnly", func(t *testing.T) {
		s := service.NewSessions()
		var got []bool
		unsubscribe := s.OnAuthStateChanged("u1", func(in bool) { got = append(got, in) })

		s.SignIn("u1")
		s.SignIn("u1")
		s.SignOut("u1")
		s.SignIn("u2")
		unsubscribe()
		unsubscribe()
		s.SignIn("u1")

		assert.Equal(t, []bool{false, true, false}, got)
		assert.True(t, s.SignedIn("u1"))
	})
}
