package accountstate_test

import (
	"testing"
	"time"

	"github.com/imellon/go-investa/internal/models/modeldto"
	"github.com/imellon/go-investa/internal/service/accountstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_StartsLoading(t *testing.T) {
	s := accountstate.NewStore()
	assert.True(t, s.Get().Loading)
	assert.Nil(t, s.Get().User)
}

func TestSetAndGet(t *testing.T) {
	s := accountstate.NewStore()
	s.Set(func(st *accountstate.State) {
		st.User = &modeldto.User{UID: "u1"}
		st.Loading = false
	})
	got := s.Get()
	assert.False(t, got.Loading)
	require.NotNil(t, got.User)
	assert.Equal(t, "u1", got.User.UID)
}

func TestSubscribe_NotifiesOnSelectedChange(t *testing.T) {
	s := accountstate.NewStore()
	ch, cancel := s.Subscribe(func(st accountstate.State) interface{} { return st.Balance.Balance })
	defer cancel()

	s.Set(func(st *accountstate.State) { st.Balance.Balance = 100 })

	select {
	case v := <-ch:
		assert.Equal(t, 100.0, v)
	case <-time.After(time.Second):
		t.Fatal("expected a notification")
	}
}

func TestSubscribe_SkipsUnrelatedChange(t *testing.T) {
	s := accountstate.NewStore()
	ch, cancel := s.Subscribe(func(st accountstate.State) interface{} { return st.Balance.Balance })
	defer cancel()

	// mutating an unselected slice produces no notification
	s.Set(func(st *accountstate.State) { st.Err = "boom" })

	select {
	case <-ch:
		t.Fatal("unexpected notification")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribe_KeepsLatestValueOnly(t *testing.T) {
	s := accountstate.NewStore()
	ch, cancel := s.Subscribe(func(st accountstate.State) interface{} { return st.Balance.Balance })
	defer cancel()

	s.Set(func(st *accountstate.State) { st.Balance.Balance = 1 })
	s.Set(func(st *accountstate.State) { st.Balance.Balance = 2 })
	s.Set(func(st *accountstate.State) { st.Balance.Balance = 3 })

	select {
	case v := <-ch:
		assert.Equal(t, 3.0, v)
	case <-time.After(time.Second):
		t.Fatal("expected a notification")
	}
}

func TestCancel_ClosesChannel(t *testing.T) {
	s := accountstate.NewStore()
	ch, cancel := s.Subscribe(func(st accountstate.State) interface{} { return st.Loading })
	cancel()
	_, open := <-ch
	assert.False(t, open)
	// double cancel is safe
	cancel()
}

func TestReset(t *testing.T) {
	s := accountstate.NewStore()
	s.Set(func(st *accountstate.State) {
		st.User = &modeldto.User{UID: "u1"}
		st.Loading = false
	})
	s.Reset()
	got := s.Get()
	assert.Nil(t, got.User)
	assert.False(t, got.Loading)
}

func TestManager_ForSessionAndDrop(t *testing.T) {
	m := accountstate.NewManager()
	a := m.ForSession("s1")
	b := m.ForSession("s1")
	assert.Same(t, a, b)

	c := m.ForSession("s2")
	assert.NotSame(t, a, c)

	m.Drop("s1")
	d := m.ForSession("s1")
	assert.NotSame(t, a, d)
}
