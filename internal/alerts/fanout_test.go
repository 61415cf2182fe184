package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/maos-da-obra/internal/domain/notifications"
	"github.com/Spok95/maos-da-obra/internal/domain/users"
	"github.com/Spok95/maos-da-obra/internal/infra/logger"
	"github.com/Spok95/maos-da-obra/internal/infra/push"
)

type fakePusher struct {
	msgs     []push.Message
	err      error
	ctxErr   error
	deadline bool
}

func (p *fakePusher) Notify(ctx context.Context, _ uuid.UUID, msg push.Message) (push.Report, error) {
	p.msgs = append(p.msgs, msg)
	p.ctxErr = ctx.Err()
	_, p.deadline = ctx.Deadline()
	return push.Report{Sent: 1}, p.err
}

type fakeChat struct {
	sent map[int64]string
}

func (c *fakeChat) Send(_ context.Context, chatID int64, text string) error {
	if c.sent == nil {
		c.sent = map[int64]string{}
	}
	c.sent[chatID] = text
	return nil
}

type fakeUsers map[uuid.UUID]*users.User

func (f fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	return f[id], nil
}

func TestFanoutPushAndTelegram(t *testing.T) {
	userID, workID := uuid.New(), uuid.New()
	chatID := int64(777)
	p, c := &fakePusher{}, &fakeChat{}
	f := NewFanout(logger.Discard(), p, c, fakeUsers{userID: {ID: userID, TelegramChatID: &chatID}}, "https://app.test")

	f.Deliver(context.Background(), notifications.Notification{
		UserID: userID, WorkID: &workID, Title: "Etapa atrasada", Message: "Fundação", Tag: DelayTag(uuid.Nil),
	})

	require.Len(t, p.msgs, 1)
	assert.Equal(t, "https://app.test/works/"+workID.String(), p.msgs[0].URL)
	assert.Equal(t, "Etapa atrasada", p.msgs[0].Title)
	assert.Contains(t, c.sent[chatID], "Fundação")
}

func TestFanoutWithoutChatLinkSkipsTelegram(t *testing.T) {
	userID := uuid.New()
	p, c := &fakePusher{err: errors.New("boom")}, &fakeChat{}
	f := NewFanout(logger.Discard(), p, c, fakeUsers{userID: {ID: userID}}, "https://app.test")

	f.Deliver(context.Background(), notifications.Notification{UserID: userID, Title: "x"})

	require.Len(t, p.msgs, 1)
	assert.Equal(t, "https://app.test/notifications", p.msgs[0].URL)
	assert.Empty(t, c.sent)
}

func TestFanoutTelegramDisabled(t *testing.T) {
	p := &fakePusher{}
	f := NewFanout(logger.Discard(), p, nil, nil, "")
	assert.NotPanics(t, func() {
		f.Deliver(context.Background(), notifications.Notification{UserID: uuid.New()})
	})
	assert.Len(t, p.msgs, 1)
}

func TestFanoutGoOutlivesRequest(t *testing.T) {
	p := &fakePusher{}
	f := NewFanout(logger.Discard(), p, nil, nil, "https://app.test")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.Go(ctx, notifications.Notification{UserID: uuid.New(), Title: "Orçamento"})
	f.Wait()

	require.Len(t, p.msgs, 1)
	assert.NoError(t, p.ctxErr)
	assert.True(t, p.deadline)
}
