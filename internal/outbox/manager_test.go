package outbox_test

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecolink-dev/ecolink/internal/model"
	"github.com/ecolink-dev/ecolink/internal/outbox"
	"github.com/ecolink-dev/ecolink/internal/repository"
)

type fakeUploader struct {
	mu       sync.Mutex
	calls    [][]outbox.File
	failName string
	failErr  error
	block    chan struct{}
}

func (f *fakeUploader) Upload(_ context.Context, files []outbox.File) ([]outbox.Media, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.calls = append(f.calls, files)
	f.mu.Unlock()
	for _, fl := range files {
		if f.failName != "" && fl.Name == f.failName {
			return nil, f.failErr
		}
	}
	media := make([]outbox.Media, len(files))
	for i, fl := range files {
		media[i] = outbox.Media{URL: "https://cdn.test/" + fl.Name, ProviderID: fl.Name}
	}
	return media, nil
}

func (f *fakeUploader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeDocStore struct {
	mu       sync.Mutex
	docs     []map[string]any
	failDesc string
	failErr  error
}

func (f *fakeDocStore) Create(_ context.Context, _ string, doc map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDesc != "" && doc["description"] == f.failDesc {
		return "", f.failErr
	}
	f.docs = append(f.docs, doc)
	return fmt.Sprintf("doc-%d", len(f.docs)), nil
}

func (f *fakeDocStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

type fakeConn struct {
	mu     sync.Mutex
	online bool
}

func (f *fakeConn) Online(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online
}

func (f *fakeConn) set(v bool) {
	f.mu.Lock()
	f.online = v
	f.mu.Unlock()
}

func newTestStore(t *testing.T) (*repository.OutboxRepository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	repo := repository.NewOutboxRepository(db)
	require.NoError(t, repo.Open(context.Background()))
	return repo, db
}

func meta(desc string, createdAt int64) map[string]any {
	return map[string]any{"description": desc, "createdAt": createdAt}
}

func file(name string) outbox.File {
	return outbox.File{Name: name, MimeType: "image/jpeg", Data: []byte("jpeg:" + name)}
}

func TestEnqueueCapsAttachments(t *testing.T) {
	store, _ := newTestStore(t)
	m := outbox.NewManager(store, &fakeUploader{}, &fakeDocStore{}, &fakeConn{})
	ctx := context.Background()

	files := []outbox.File{
		file("1.jpg"), file("2.jpg"), file("3.jpg"),
		file("4.jpg"), file("5.jpg"), file("6.jpg"),
	}
	id, err := m.Enqueue(ctx, meta("capped", 1), files)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	items, err := store.ScanOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Len(t, items[0].Files, 4)
	for i, want := range []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg"} {
		require.Equal(t, want, items[0].Files[i].Name)
		require.Equal(t, i, items[0].Files[i].Position)
	}
}

func TestDrainFIFO(t *testing.T) {
	store, _ := newTestStore(t)
	up := &fakeUploader{}
	docs := &fakeDocStore{}
	m := outbox.NewManager(store, up, docs, &fakeConn{online: true})
	ctx := context.Background()

	for i, desc := range []string{"one", "two", "three"} {
		_, err := m.Enqueue(ctx, meta(desc, int64(i+1)), []outbox.File{file(desc + ".jpg")})
		require.NoError(t, err)
	}

	n, err := m.Drain(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	// 上传顺序与入队顺序一致
	require.Equal(t, 3, up.callCount())
	require.Equal(t, "one.jpg", up.calls[0][0].Name)
	require.Equal(t, "two.jpg", up.calls[1][0].Name)
	require.Equal(t, "three.jpg", up.calls[2][0].Name)

	cnt, err := store.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, cnt)

	// 远端文档带审核标记与清零计数
	require.Equal(t, "one", docs.docs[0]["description"])
	require.Equal(t, false, docs.docs[0]["validated"])
	require.Equal(t, 0, docs.docs[0]["comments_count"])
}

func TestDrainOfflineFastPath(t *testing.T) {
	store, _ := newTestStore(t)
	up := &fakeUploader{}
	docs := &fakeDocStore{}
	m := outbox.NewManager(store, up, docs, &fakeConn{online: false})
	ctx := context.Background()

	_, err := m.Enqueue(ctx, meta("offline", 1), []outbox.File{file("a.jpg")})
	require.NoError(t, err)

	n, err := m.Drain(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Equal(t, 0, up.callCount())
	require.Equal(t, 0, docs.count())

	cnt, err := store.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, cnt)
}

func TestDrainStopsOnTransientFailure(t *testing.T) {
	store, _ := newTestStore(t)
	up := &fakeUploader{
		failName: "two.jpg",
		failErr:  fmt.Errorf("%w: connection dropped", outbox.ErrTransient),
	}
	docs := &fakeDocStore{}
	m := outbox.NewManager(store, up, docs, &fakeConn{online: true})
	ctx := context.Background()

	for i, desc := range []string{"one", "two", "three"} {
		_, err := m.Enqueue(ctx, meta(desc, int64(i+1)), []outbox.File{file(desc + ".jpg")})
		require.NoError(t, err)
	}

	n, err := m.Drain(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// 2、3 原位保留，2 仍在队首
	items, err := store.ScanOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, `{"createdAt":2,"description":"two"}`, string(items[0].Meta))

	// 下一轮先重试 2，成功后全部清空
	up.failName = ""
	n, err = m.Drain(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "two.jpg", up.calls[len(up.calls)-2][0].Name)

	cnt, err := store.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, cnt)
}

func TestDrainSkipsLogicalFailure(t *testing.T) {
	store, db := newTestStore(t)
	up := &fakeUploader{}
	docs := &fakeDocStore{
		failDesc: "two",
		failErr:  fmt.Errorf("document rejected: invalid payload"),
	}
	var dropped []string
	m := outbox.NewManager(store, up, docs, &fakeConn{online: true},
		outbox.WithDropHook(func(item *model.OutboxItem, err error) {
			dropped = append(dropped, item.ID)
		}),
	)
	ctx := context.Background()

	for i, desc := range []string{"one", "two", "three"} {
		_, err := m.Enqueue(ctx, meta(desc, int64(i+1)), nil)
		require.NoError(t, err)
	}

	n, err := m.Drain(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, dropped, 1)

	cnt, err := store.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, cnt)

	// 被丢弃的项落入死信表而非凭空消失
	failed := repository.NewFailedRepository(db)
	dead, err := failed.List(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	require.Contains(t, string(dead[0].Meta), "two")
	require.Contains(t, dead[0].Reason, "rejected")
}

func TestBinaryPayloadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	up := &fakeUploader{}
	m := outbox.NewManager(store, up, &fakeDocStore{}, &fakeConn{online: true})
	ctx := context.Background()

	payload := []byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0xff, 0x01}
	_, err := m.Enqueue(ctx, meta("binary", 1), []outbox.File{
		{Name: "pic.png", MimeType: "image/png", Data: payload},
	})
	require.NoError(t, err)

	n, err := m.Drain(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.Equal(t, 1, up.callCount())
	got := up.calls[0][0]
	require.Equal(t, "pic.png", got.Name)
	require.Equal(t, "image/png", got.MimeType)
	require.True(t, bytes.Equal(payload, got.Data))
}

func TestConcurrentDrainIsNoop(t *testing.T) {
	store, _ := newTestStore(t)
	up := &fakeUploader{block: make(chan struct{})}
	m := outbox.NewManager(store, up, &fakeDocStore{}, &fakeConn{online: true})
	ctx := context.Background()

	_, err := m.Enqueue(ctx, meta("slow", 1), []outbox.File{file("slow.jpg")})
	require.NoError(t, err)

	done := make(chan int)
	go func() {
		n, _ := m.Drain(ctx)
		done <- n
	}()

	// 第一个 drain 阻塞在上传中，第二个必须立即空转
	time.Sleep(50 * time.Millisecond)
	n, err := m.Drain(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	close(up.block)
	require.Equal(t, 1, <-done)
}
