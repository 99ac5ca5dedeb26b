package eventbus

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/groovy-lsp-index/internal/types"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New()
	var received types.FileIndexedEvent
	var count int32

	Subscribe(b, func(e types.FileIndexedEvent) {
		received = e
		atomic.AddInt32(&count, 1)
	})

	event := types.NewFileIndexedEvent("id-1", time.Now(), "Foo.groovy", nil, true)
	b.Publish(event)

	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
	assert.Equal(t, "Foo.groovy", received.Path())
}

func TestPublishOnlyDeliversToMatchingType(t *testing.T) {
	b := New()
	var fileCount, workspaceCount int32

	Subscribe(b, func(e types.FileIndexedEvent) { atomic.AddInt32(&fileCount, 1) })
	Subscribe(b, func(e types.WorkspaceIndexedEvent) { atomic.AddInt32(&workspaceCount, 1) })

	b.Publish(types.NewFileIndexedEvent("id-1", time.Now(), "Foo.groovy", nil, true))

	assert.Equal(t, int32(1), atomic.LoadInt32(&fileCount))
	assert.Equal(t, int32(0), atomic.LoadInt32(&workspaceCount))
}

func TestSubscribeIsIdempotentPerHandlerIdentity(t *testing.T) {
	b := New()
	var count int32
	handler := func(e types.FileIndexedEvent) { atomic.AddInt32(&count, 1) }

	Subscribe(b, handler)
	Subscribe(b, handler)

	b.Publish(types.NewFileIndexedEvent("id-1", time.Now(), "Foo.groovy", nil, true))
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestUnsubscribeRemovesExactRegistration(t *testing.T) {
	b := New()
	var count int32
	handler := func(e types.FileIndexedEvent) { atomic.AddInt32(&count, 1) }

	Subscribe(b, handler)
	Unsubscribe(b, handler)

	b.Publish(types.NewFileIndexedEvent("id-1", time.Now(), "Foo.groovy", nil, true))
	assert.Equal(t, int32(0), atomic.LoadInt32(&count))
}

func TestPanickingHandlerDoesNotBlockOthers(t *testing.T) {
	b := New()
	var secondCalled int32

	Subscribe(b, func(e types.FileIndexedEvent) { panic("boom") })
	Subscribe(b, func(e types.FileIndexedEvent) { atomic.AddInt32(&secondCalled, 1) })

	assert.NotPanics(t, func() {
		b.Publish(types.NewFileIndexedEvent("id-1", time.Now(), "Foo.groovy", nil, true))
	})
	assert.Equal(t, int32(1), atomic.LoadInt32(&secondCalled))
}
