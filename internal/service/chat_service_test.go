package service_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/Leothelion6721/Whatsapp-attachments/internal/domain"
	"github.com/Leothelion6721/Whatsapp-attachments/internal/repository/memory"
	"github.com/Leothelion6721/Whatsapp-attachments/internal/service"
)

// recordingNotifier captures every push the router emits, keyed by the
// connection it was addressed to.
type recordingNotifier struct {
	pushes []push
}

type push struct {
	connID  uuid.UUID
	kind    string
	message *domain.MessageView
	chat    *domain.ChatSummary
	typing  bool
	online  bool
	user    uuid.UUID
}

func (n *recordingNotifier) NotifyNewMessage(connID uuid.UUID, msg domain.MessageView) {
	n.pushes = append(n.pushes, push{connID: connID, kind: "newMessage", message: &msg})
}

func (n *recordingNotifier) NotifyNewChat(connID uuid.UUID, chat domain.ChatSummary) {
	n.pushes = append(n.pushes, push{connID: connID, kind: "newChat", chat: &chat})
}

func (n *recordingNotifier) NotifyTyping(connID uuid.UUID, chatID string, userID uuid.UUID, displayName string, isTyping bool) {
	n.pushes = append(n.pushes, push{connID: connID, kind: "typing", typing: isTyping, user: userID})
}

func (n *recordingNotifier) NotifyPresence(connID uuid.UUID, user domain.User, online bool) {
	n.pushes = append(n.pushes, push{connID: connID, kind: "presence", online: online, user: user.ID})
}

func (n *recordingNotifier) of(kind string) []push {
	return lo.Filter(n.pushes, func(p push, _ int) bool { return p.kind == kind })
}

func (n *recordingNotifier) reset() { n.pushes = nil }

func newTestService(t *testing.T) (*service.ChatService, *recordingNotifier) {
	t.Helper()
	tokens := service.NewTokenService("test-secret", time.Hour)
	svc := service.NewChatService(memory.NewUserRepo(), memory.NewChatRepo(), memory.NewMessageRepo(), tokens)
	n := &recordingNotifier{}
	svc.SetNotifier(n)
	return svc, n
}

func login(t *testing.T, svc *service.ChatService, name string) (*service.LoginResult, uuid.UUID) {
	t.Helper()
	connID := uuid.New()
	result, err := svc.Login(context.Background(), name, connID)
	require.NoError(t, err)
	return result, connID
}

func TestLogin_CreatesThenResumesIdentity(t *testing.T) {
	svc, _ := newTestService(t)

	first, _ := login(t, svc, "alice")
	require.Equal(t, "alice", first.User.DisplayName)
	require.True(t, first.User.Online)
	require.NotEmpty(t, first.SessionToken)
	require.Empty(t, first.Chats)

	// Same name from a new connection resumes the same identity and rebinds
	// the connection handle.
	second, conn2 := login(t, svc, "alice")
	require.Equal(t, first.User.ID, second.User.ID)
	require.Equal(t, conn2, second.User.ConnID)
}

func TestLogin_ResultDetachedFromRegistry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, conn1 := login(t, svc, "alice")

	// The result must be a snapshot: later registry updates on the same
	// identity may not show through it. Marshal it concurrently while the
	// registry copy keeps changing.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_, err := json.Marshal(first)
			require.NoError(t, err)
		}
	}()
	for i := 0; i < 100; i++ {
		_, err := svc.Login(ctx, "alice", uuid.New())
		require.NoError(t, err)
	}
	wg.Wait()

	_, conn2 := login(t, svc, "alice")
	svc.Disconnect(ctx, first.User.ID, conn2)

	require.Equal(t, conn1, first.User.ConnID)
	require.True(t, first.User.Online)
}

func TestLogin_EmptyNameRejected(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Login(context.Background(), "   ", uuid.New())
	require.ErrorIs(t, err, service.ErrEmptyDisplayName)
}

func TestLogin_BroadcastsPresenceToOthersOnly(t *testing.T) {
	svc, n := newTestService(t)

	_, bobConn := login(t, svc, "bob")
	n.reset()

	alice, aliceConn := login(t, svc, "alice")

	presence := n.of("presence")
	require.Len(t, presence, 1)
	require.Equal(t, bobConn, presence[0].connID)
	require.NotEqual(t, aliceConn, presence[0].connID)
	require.Equal(t, alice.User.ID, presence[0].user)
	require.True(t, presence[0].online)
}

func TestStartDirectChat_DeterministicAndIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	alice, _ := login(t, svc, "alice")
	bob, _ := login(t, svc, "bob")

	h1, err := svc.StartDirectChat(ctx, alice.User.ID, bob.User.ID)
	require.NoError(t, err)
	h2, err := svc.StartDirectChat(ctx, bob.User.ID, alice.User.ID)
	require.NoError(t, err)
	h3, err := svc.StartDirectChat(ctx, alice.User.ID, bob.User.ID)
	require.NoError(t, err)

	require.Equal(t, domain.DirectChatID(alice.User.ID, bob.User.ID), h1.Chat.ID)
	require.Equal(t, h1.Chat.ID, h2.Chat.ID)
	require.Equal(t, h1.Chat.ID, h3.Chat.ID)
	require.Equal(t, domain.ChatKindDirect, h1.Chat.Kind)

	// Name resolves to the other side for each caller.
	require.Equal(t, "bob", h1.Chat.DisplayName)
	require.Equal(t, "alice", h2.Chat.DisplayName)
}

func TestStartDirectChat_PushesNewChatToOnlineTarget(t *testing.T) {
	svc, n := newTestService(t)
	ctx := context.Background()

	alice, _ := login(t, svc, "alice")
	bob, bobConn := login(t, svc, "bob")
	n.reset()

	_, err := svc.StartDirectChat(ctx, alice.User.ID, bob.User.ID)
	require.NoError(t, err)

	newChats := n.of("newChat")
	require.Len(t, newChats, 1)
	require.Equal(t, bobConn, newChats[0].connID)
	// From bob's perspective the chat is named after alice.
	require.Equal(t, "alice", newChats[0].chat.DisplayName)
	require.True(t, newChats[0].chat.OtherOnline)
}

func TestStartDirectChat_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	alice, _ := login(t, svc, "alice")

	_, err := svc.StartDirectChat(ctx, alice.User.ID, alice.User.ID)
	require.ErrorIs(t, err, service.ErrCannotChatSelf)

	_, err = svc.StartDirectChat(ctx, alice.User.ID, uuid.New())
	require.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestSendMessage_DirectChatScenario(t *testing.T) {
	svc, n := newTestService(t)
	ctx := context.Background()

	alice, aliceConn := login(t, svc, "alice")
	bob, bobConn := login(t, svc, "bob")

	history, err := svc.StartDirectChat(ctx, alice.User.ID, bob.User.ID)
	require.NoError(t, err)
	n.reset()

	msg, err := svc.SendMessage(ctx, alice.User.ID, history.Chat.ID, "hi", nil)
	require.NoError(t, err)
	require.Equal(t, "hi", *msg.Text)
	require.Equal(t, "alice", msg.SenderDisplayName)

	deliveries := n.of("newMessage")
	require.Len(t, deliveries, 2)

	byConn := lo.KeyBy(deliveries, func(p push) uuid.UUID { return p.connID })
	aliceCopy, bobCopy := byConn[aliceConn], byConn[bobConn]
	require.NotNil(t, aliceCopy.message)
	require.NotNil(t, bobCopy.message)
	require.True(t, aliceCopy.message.Sent)
	require.False(t, bobCopy.message.Sent)

	// Identical message on both sides apart from the sent tag.
	require.Equal(t, msg.ID, aliceCopy.message.ID)
	require.Equal(t, msg.ID, bobCopy.message.ID)
	require.Equal(t, aliceCopy.message.CreatedAt, bobCopy.message.CreatedAt)
}

func TestSendMessage_FanoutScopedToOnlineParticipants(t *testing.T) {
	svc, n := newTestService(t)
	ctx := context.Background()

	alice, aliceConn := login(t, svc, "alice")
	bob, bobConn := login(t, svc, "bob")
	carol, carolConn := login(t, svc, "carol")
	_, eveConn := login(t, svc, "eve") // online but not a member

	group, err := svc.CreateGroupChat(ctx, alice.User.ID, "Team", []uuid.UUID{bob.User.ID, carol.User.ID})
	require.NoError(t, err)

	svc.Disconnect(ctx, carol.User.ID, carolConn)
	n.reset()

	_, err = svc.SendMessage(ctx, alice.User.ID, group.ID, "standup?", nil)
	require.NoError(t, err)

	deliveries := n.of("newMessage")
	require.Len(t, deliveries, 2)
	conns := lo.Map(deliveries, func(p push, _ int) uuid.UUID { return p.connID })
	require.ElementsMatch(t, []uuid.UUID{aliceConn, bobConn}, conns)
	require.NotContains(t, conns, carolConn)
	require.NotContains(t, conns, eveConn)
}

func TestSendMessage_NeitherTextNorAttachmentRejected(t *testing.T) {
	svc, n := newTestService(t)
	ctx := context.Background()

	alice, _ := login(t, svc, "alice")
	bob, _ := login(t, svc, "bob")
	history, err := svc.StartDirectChat(ctx, alice.User.ID, bob.User.ID)
	require.NoError(t, err)
	n.reset()

	_, err = svc.SendMessage(ctx, alice.User.ID, history.Chat.ID, "   ", nil)
	require.ErrorIs(t, err, service.ErrEmptyMessage)
	require.Empty(t, n.pushes)

	messages, err := svc.GetMessages(ctx, alice.User.ID, history.Chat.ID)
	require.NoError(t, err)
	require.Empty(t, messages)
}

func TestSendMessage_TextAndAttachmentRejected(t *testing.T) {
	svc, n := newTestService(t)
	ctx := context.Background()

	alice, _ := login(t, svc, "alice")
	bob, _ := login(t, svc, "bob")
	history, err := svc.StartDirectChat(ctx, alice.User.ID, bob.User.ID)
	require.NoError(t, err)
	n.reset()

	att := &domain.Attachment{
		FileName:     "abc.png",
		OriginalName: "photo.png",
		MimeType:     "image/png",
		Size:         1234,
		URL:          "/uploads/abc.png",
	}
	_, err = svc.SendMessage(ctx, alice.User.ID, history.Chat.ID, "look at this", att)
	require.ErrorIs(t, err, service.ErrAmbiguous)
	require.Empty(t, n.pushes)

	messages, err := svc.GetMessages(ctx, alice.User.ID, history.Chat.ID)
	require.NoError(t, err)
	require.Empty(t, messages)
}

func TestSendMessage_AttachmentOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	alice, _ := login(t, svc, "alice")
	bob, _ := login(t, svc, "bob")
	history, err := svc.StartDirectChat(ctx, alice.User.ID, bob.User.ID)
	require.NoError(t, err)

	att := &domain.Attachment{
		FileName:     "abc.png",
		OriginalName: "photo.png",
		MimeType:     "image/png",
		Size:         1234,
		URL:          "/uploads/abc.png",
	}
	msg, err := svc.SendMessage(ctx, alice.User.ID, history.Chat.ID, "", att)
	require.NoError(t, err)
	require.Nil(t, msg.Text)
	require.Equal(t, att, msg.Attachment)
}

func TestMembershipEnforcement(t *testing.T) {
	svc, n := newTestService(t)
	ctx := context.Background()

	alice, _ := login(t, svc, "alice")
	bob, _ := login(t, svc, "bob")
	mallory, _ := login(t, svc, "mallory")

	history, err := svc.StartDirectChat(ctx, alice.User.ID, bob.User.ID)
	require.NoError(t, err)
	n.reset()

	_, err = svc.SendMessage(ctx, mallory.User.ID, history.Chat.ID, "let me in", nil)
	require.ErrorIs(t, err, service.ErrNotParticipant)

	_, err = svc.GetMessages(ctx, mallory.User.ID, history.Chat.ID)
	require.ErrorIs(t, err, service.ErrNotParticipant)

	err = svc.SetTyping(ctx, mallory.User.ID, history.Chat.ID, true)
	require.ErrorIs(t, err, service.ErrNotParticipant)

	// No state change, nothing delivered to anyone.
	require.Empty(t, n.pushes)
	messages, err := svc.GetMessages(ctx, alice.User.ID, history.Chat.ID)
	require.NoError(t, err)
	require.Empty(t, messages)
}

func TestMessageOrdering(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	alice, _ := login(t, svc, "alice")
	bob, _ := login(t, svc, "bob")
	history, err := svc.StartDirectChat(ctx, alice.User.ID, bob.User.ID)
	require.NoError(t, err)

	m1, err := svc.SendMessage(ctx, alice.User.ID, history.Chat.ID, "first", nil)
	require.NoError(t, err)
	m2, err := svc.SendMessage(ctx, bob.User.ID, history.Chat.ID, "second", nil)
	require.NoError(t, err)

	messages, err := svc.GetMessages(ctx, alice.User.ID, history.Chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, m1.ID, messages[0].ID)
	require.Equal(t, m2.ID, messages[1].ID)
	require.True(t, messages[0].Sent)
	require.False(t, messages[1].Sent)
}

func TestSetTyping_PushedToOtherOnlineParticipantsOnly(t *testing.T) {
	svc, n := newTestService(t)
	ctx := context.Background()

	alice, aliceConn := login(t, svc, "alice")
	bob, bobConn := login(t, svc, "bob")
	carol, carolConn := login(t, svc, "carol")

	group, err := svc.CreateGroupChat(ctx, alice.User.ID, "Team", []uuid.UUID{bob.User.ID, carol.User.ID})
	require.NoError(t, err)
	svc.Disconnect(ctx, carol.User.ID, carolConn)
	n.reset()

	require.NoError(t, svc.SetTyping(ctx, alice.User.ID, group.ID, true))

	typing := n.of("typing")
	require.Len(t, typing, 1)
	require.Equal(t, bobConn, typing[0].connID)
	require.NotEqual(t, aliceConn, typing[0].connID)
	require.True(t, typing[0].typing)
	require.Equal(t, alice.User.ID, typing[0].user)
}

func TestCreateGroupChat(t *testing.T) {
	svc, n := newTestService(t)
	ctx := context.Background()

	alice, _ := login(t, svc, "alice")
	bob, bobConn := login(t, svc, "bob")
	carol, _ := login(t, svc, "carol")
	n.reset()

	// Duplicated member ids collapse; creator is always included.
	group, err := svc.CreateGroupChat(ctx, alice.User.ID, "Team", []uuid.UUID{bob.User.ID, bob.User.ID, carol.User.ID})
	require.NoError(t, err)
	require.Equal(t, domain.ChatKindGroup, group.Kind)
	require.Equal(t, "Team", group.DisplayName)
	require.Len(t, group.ParticipantIDs, 3)
	require.Contains(t, group.ParticipantIDs, alice.User.ID)

	newChats := n.of("newChat")
	require.Len(t, newChats, 2)
	require.Equal(t, bobConn, newChats[0].connID)

	_, err = svc.CreateGroupChat(ctx, alice.User.ID, "  ", []uuid.UUID{bob.User.ID})
	require.ErrorIs(t, err, service.ErrEmptyGroupName)

	_, err = svc.CreateGroupChat(ctx, alice.User.ID, "Empty", nil)
	require.ErrorIs(t, err, service.ErrNoMembers)
}

func TestCreateGroupChat_OfflineMemberCatchesUpOnLogin(t *testing.T) {
	svc, n := newTestService(t)
	ctx := context.Background()

	alice, _ := login(t, svc, "alice")
	bob, _ := login(t, svc, "bob")
	carol, carolConn := login(t, svc, "carol")
	svc.Disconnect(ctx, carol.User.ID, carolConn)
	n.reset()

	_, err := svc.CreateGroupChat(ctx, alice.User.ID, "Team", []uuid.UUID{bob.User.ID, carol.User.ID})
	require.NoError(t, err)

	// No push to offline carol...
	for _, p := range n.of("newChat") {
		require.NotEqual(t, carolConn, p.connID)
	}

	// ...but her next login lists the group.
	resumed, _ := login(t, svc, "carol")
	require.Equal(t, carol.User.ID, resumed.User.ID)
	require.Len(t, resumed.Chats, 1)
	require.Equal(t, "Team", resumed.Chats[0].DisplayName)
	require.Equal(t, domain.ChatKindGroup, resumed.Chats[0].Kind)
}

func TestLoginChatList_PreviewsLastMessage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	alice, _ := login(t, svc, "alice")
	bob, bobConn := login(t, svc, "bob")
	history, err := svc.StartDirectChat(ctx, alice.User.ID, bob.User.ID)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, alice.User.ID, history.Chat.ID, "see you tomorrow", nil)
	require.NoError(t, err)

	svc.Disconnect(ctx, bob.User.ID, bobConn)
	resumed, _ := login(t, svc, "bob")
	require.Len(t, resumed.Chats, 1)

	chat := resumed.Chats[0]
	require.Equal(t, "alice", chat.DisplayName)
	require.True(t, chat.OtherOnline)
	require.NotNil(t, chat.LastMessage)
	require.Equal(t, "see you tomorrow", *chat.LastMessage.Text)
}

func TestDisconnect_StaleHandleIgnored(t *testing.T) {
	svc, n := newTestService(t)
	ctx := context.Background()

	_, bobConn := login(t, svc, "bob")

	alice, conn1 := login(t, svc, "alice")
	resumed, conn2 := login(t, svc, "alice")
	require.Equal(t, alice.User.ID, resumed.User.ID)
	n.reset()

	// The old socket dying must not knock the resumed session offline.
	svc.Disconnect(ctx, alice.User.ID, conn1)
	require.Empty(t, n.of("presence"))

	online, err := svc.ListOnlineUsers(ctx, uuid.New())
	require.NoError(t, err)
	require.Len(t, online, 2)

	svc.Disconnect(ctx, alice.User.ID, conn2)
	presence := n.of("presence")
	require.Len(t, presence, 1)
	require.Equal(t, bobConn, presence[0].connID)
	require.False(t, presence[0].online)

	online, err = svc.ListOnlineUsers(ctx, uuid.New())
	require.NoError(t, err)
	require.Len(t, online, 1)
	require.Equal(t, "bob", online[0].DisplayName)
}

func TestListOnlineUsers_ExcludesCaller(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	alice, _ := login(t, svc, "alice")
	login(t, svc, "bob")

	online, err := svc.ListOnlineUsers(ctx, alice.User.ID)
	require.NoError(t, err)
	require.Len(t, online, 1)
	require.Equal(t, "bob", online[0].DisplayName)
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	alice, _ := login(t, svc, "alice")
	bob, _ := login(t, svc, "bob")
	history, err := svc.StartDirectChat(ctx, alice.User.ID, bob.User.ID)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, alice.User.ID, history.Chat.ID, "hi", nil)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, service.Stats{Users: 2, Chats: 1, Messages: 1}, stats)
}
