package srv

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/livetable/pkg/socket/broker"
	"github.com/quka-ai/livetable/pkg/types/protocol"
)

func TestTableLockerSerializesSameTable(t *testing.T) {
	l := NewTableLocker()

	var (
		wg      sync.WaitGroup
		inside  int32
		maxSeen int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("t1")
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			if n > atomic.LoadInt32(&maxSeen) {
				atomic.StoreInt32(&maxSeen, n)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
	assert.Equal(t, 0, l.size())
}

func TestTableLockerIndependentTables(t *testing.T) {
	l := NewTableLocker()
	unlockA := l.Lock("a")

	done := make(chan struct{})
	go func() {
		unlock := l.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on another table blocked")
	}

	unlockA()
	// 重复调用无副作用
	unlockA()
	assert.Equal(t, 0, l.size())
}

type recorder struct {
	id   string
	mu   sync.Mutex
	msgs []protocol.Message
}

func (r *recorder) ID() string     { return r.id }
func (r *recorder) UserID() string { return "user-" + r.id }

func (r *recorder) Send(raw []byte) error {
	var msg protocol.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestFanoutSkipsOriginator(t *testing.T) {
	f := NewFanout(broker.NewLocal(), false)
	require.NoError(t, f.Start(context.Background()))

	a, b := &recorder{id: "a"}, &recorder{id: "b"}
	f.Join("t1", a)
	f.Join("t1", b)

	var observed int
	f.Observe(func(op protocol.Operation, delivered int) {
		observed += delivered
	})

	require.NoError(t, f.Publish(context.Background(), "a", protocol.Message{Type: protocol.OP_ROW_INSERT, TableID: "t1"}))
	assert.Equal(t, 0, a.count())
	assert.Equal(t, 1, b.count())
	assert.Equal(t, 1, observed)
}

func TestFanoutEcho(t *testing.T) {
	f := NewFanout(broker.NewLocal(), true)
	require.NoError(t, f.Start(context.Background()))

	a := &recorder{id: "a"}
	f.Join("t1", a)
	require.NoError(t, f.Publish(context.Background(), "a", protocol.Message{Type: protocol.OP_ROW_INSERT, TableID: "t1"}))
	assert.Equal(t, 1, a.count())
}

func TestFanoutTableDeleteDropsGroup(t *testing.T) {
	f := NewFanout(broker.NewLocal(), false)
	require.NoError(t, f.Start(context.Background()))

	a := &recorder{id: "a"}
	f.Join("t1", a)
	require.NoError(t, f.Publish(context.Background(), "", protocol.Message{Type: protocol.OP_TABLE_DELETE, TableID: "t1"}))
	assert.Equal(t, 1, a.count())
	assert.Empty(t, f.Members("t1"))
}
