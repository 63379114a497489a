package messaging_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/messaging"
	"campusmarket/backend/internal/models"
	"campusmarket/backend/internal/store"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var ctx = context.Background()

func stubUsers(storageMock *MockStorage) {
	storageMock.On("GetUserByID", mock.Anything, "u1").
		Return(&models.User{ID: "u1", Name: "Alice", College: "Engineering", Year: "3"}, nil).Maybe()
	storageMock.On("GetUserByID", mock.Anything, "u2").
		Return(&models.User{ID: "u2", Name: "Bob", College: "Arts", Year: "2"}, nil).Maybe()
}

func TestGetOrCreateConversation_Validation(t *testing.T) {
	svc := messaging.NewService(new(MockStorage))

	tests := []struct {
		name      string
		recipient string
	}{
		{"missing recipient", ""},
		{"self conversation", "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetOrCreateConversation(ctx, "u1", tt.recipient, "")
			assert.Equal(t, apperr.InvalidRequest, apperr.KindOf(err))
		})
	}
}

func TestGetOrCreateConversation_ReturnsExisting(t *testing.T) {
	storageMock := new(MockStorage)
	stubUsers(storageMock)
	existing := &models.Conversation{
		ID:             "c1",
		ParticipantIDs: pq.StringArray{"u1", "u2"},
		ParticipantKey: "u1:u2",
	}
	storageMock.On("FindConversation", mock.Anything, "u1:u2", "").Return(existing, nil)

	svc := messaging.NewService(storageMock)

	first, err := svc.GetOrCreateConversation(ctx, "u1", "u2", "")
	assert.NoError(t, err)
	second, err := svc.GetOrCreateConversation(ctx, "u2", "u1", "")
	assert.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "resolution must be idempotent and order-insensitive")
	storageMock.AssertNotCalled(t, "CreateConversation", mock.Anything, mock.Anything)
}

func TestGetOrCreateConversation_CreatesOnMiss(t *testing.T) {
	storageMock := new(MockStorage)
	stubUsers(storageMock)
	storageMock.On("FindConversation", mock.Anything, "u1:u2", "L1").Return(nil, store.ErrNotFound)
	storageMock.On("CreateConversation", mock.Anything, mock.AnythingOfType("*models.Conversation")).Return(nil)
	storageMock.On("GetListingByID", mock.Anything, "L1").
		Return(&models.Listing{ID: "L1", Title: "Calculus textbook", Price: 250}, nil)

	svc := messaging.NewService(storageMock)

	view, err := svc.GetOrCreateConversation(ctx, "u1", "u2", "L1")

	assert.NoError(t, err)
	assert.Equal(t, "L1", view.ListingID)
	assert.Nil(t, view.LastMessage, "new conversation has no preview")
	assert.Len(t, view.Participants, 2)
	assert.NotNil(t, view.Listing)
	assert.Equal(t, "Calculus textbook", view.Listing.Title)
	storageMock.AssertCalled(t, "CreateConversation", mock.Anything, mock.AnythingOfType("*models.Conversation"))
}

func TestGetOrCreateConversation_ListingScopeIsDistinct(t *testing.T) {
	storageMock := new(MockStorage)
	stubUsers(storageMock)
	general := &models.Conversation{ID: "c-general", ParticipantIDs: pq.StringArray{"u1", "u2"}}
	storageMock.On("FindConversation", mock.Anything, "u1:u2", "").Return(general, nil)
	storageMock.On("FindConversation", mock.Anything, "u1:u2", "L1").Return(nil, store.ErrNotFound)
	storageMock.On("CreateConversation", mock.Anything, mock.AnythingOfType("*models.Conversation")).Return(nil)
	storageMock.On("GetListingByID", mock.Anything, "L1").Return(nil, store.ErrNotFound)

	svc := messaging.NewService(storageMock)

	unscoped, err := svc.GetOrCreateConversation(ctx, "u1", "u2", "")
	assert.NoError(t, err)
	scoped, err := svc.GetOrCreateConversation(ctx, "u1", "u2", "L1")
	assert.NoError(t, err)

	assert.NotEqual(t, unscoped.ID, scoped.ID, "listing scope separates conversations for the same pair")
}

func TestGetOrCreateConversation_LosingRaceReturnsWinner(t *testing.T) {
	storageMock := new(MockStorage)
	stubUsers(storageMock)
	winner := &models.Conversation{ID: "c-winner", ParticipantIDs: pq.StringArray{"u1", "u2"}}

	// First lookup misses, the insert hits the unique index, the re-read
	// finds the concurrently created row.
	storageMock.On("FindConversation", mock.Anything, "u1:u2", "").Return(nil, store.ErrNotFound).Once()
	storageMock.On("CreateConversation", mock.Anything, mock.AnythingOfType("*models.Conversation")).
		Return(errors.New("pq: duplicate key value violates unique constraint"))
	storageMock.On("FindConversation", mock.Anything, "u1:u2", "").Return(winner, nil).Once()

	svc := messaging.NewService(storageMock)

	view, err := svc.GetOrCreateConversation(ctx, "u1", "u2", "")

	assert.NoError(t, err)
	assert.Equal(t, "c-winner", view.ID)
}

func TestSendMessage_NonParticipantForbidden(t *testing.T) {
	storageMock := new(MockStorage)
	conv := &models.Conversation{ID: "c1", ParticipantIDs: pq.StringArray{"u1", "u2"}}
	storageMock.On("GetConversationByID", mock.Anything, "c1").Return(conv, nil)

	svc := messaging.NewService(storageMock)

	_, err := svc.SendMessage(ctx, "c1", "intruder", "hello")

	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
	storageMock.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestSendMessage_TextValidation(t *testing.T) {
	storageMock := new(MockStorage)
	conv := &models.Conversation{ID: "c1", ParticipantIDs: pq.StringArray{"u1", "u2"}}
	storageMock.On("GetConversationByID", mock.Anything, "c1").Return(conv, nil)

	svc := messaging.NewService(storageMock)

	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t "},
		{"over the length limit", strings.Repeat("x", 2001)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SendMessage(ctx, "c1", "u1", tt.text)
			assert.Equal(t, apperr.InvalidRequest, apperr.KindOf(err))
		})
	}

	storageMock.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestSendMessage_PersistsAndUpdatesSnapshot(t *testing.T) {
	storageMock := new(MockStorage)
	stubUsers(storageMock)
	conv := &models.Conversation{ID: "c1", ParticipantIDs: pq.StringArray{"u1", "u2"}}
	storageMock.On("GetConversationByID", mock.Anything, "c1").Return(conv, nil)
	storageMock.On("CreateMessage", mock.Anything, mock.AnythingOfType("*models.Message")).Return(nil)

	long := strings.Repeat("a", 150)
	var snapshot models.LastMessage
	storageMock.On("UpdateConversationSnapshot", mock.Anything, "c1", mock.AnythingOfType("models.LastMessage")).
		Run(func(args mock.Arguments) { snapshot = args.Get(2).(models.LastMessage) }).
		Return(nil)

	svc := messaging.NewService(storageMock)

	sent, err := svc.SendMessage(ctx, "c1", "u1", long)

	assert.NoError(t, err)
	assert.Equal(t, long, sent.Text, "message keeps the full text")
	assert.Equal(t, "u2", sent.RecipientID)
	assert.Equal(t, "Alice", sent.Sender.Name)
	assert.Equal(t, strings.Repeat("a", 100), snapshot.Text, "preview truncates to 100 runes")
	assert.Equal(t, "u1", snapshot.SenderID)
}

func TestSendMessage_SnapshotFailureKeepsMessage(t *testing.T) {
	storageMock := new(MockStorage)
	stubUsers(storageMock)
	conv := &models.Conversation{ID: "c1", ParticipantIDs: pq.StringArray{"u1", "u2"}}
	storageMock.On("GetConversationByID", mock.Anything, "c1").Return(conv, nil)
	storageMock.On("CreateMessage", mock.Anything, mock.AnythingOfType("*models.Message")).Return(nil)
	storageMock.On("UpdateConversationSnapshot", mock.Anything, "c1", mock.AnythingOfType("models.LastMessage")).
		Return(errors.New("connection reset"))

	svc := messaging.NewService(storageMock)

	sent, err := svc.SendMessage(ctx, "c1", "u1", "Hi")

	// The message is durable; only the inbox preview is stale until next send.
	assert.NoError(t, err)
	assert.Equal(t, "Hi", sent.Text)
}

func TestListMessages_NotFoundAndForbidden(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetConversationByID", mock.Anything, "missing").Return(nil, store.ErrNotFound)
	conv := &models.Conversation{ID: "c1", ParticipantIDs: pq.StringArray{"u1", "u2"}}
	storageMock.On("GetConversationByID", mock.Anything, "c1").Return(conv, nil)

	svc := messaging.NewService(storageMock)

	_, err := svc.ListMessages(ctx, "missing", "u1")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	_, err = svc.ListMessages(ctx, "c1", "intruder")
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
}

func TestListMessages_ReturnsAscendingAndMarksRead(t *testing.T) {
	storageMock := new(MockStorage)
	stubUsers(storageMock)
	conv := &models.Conversation{ID: "c1", ParticipantIDs: pq.StringArray{"u1", "u2"}}
	storageMock.On("GetConversationByID", mock.Anything, "c1").Return(conv, nil)
	storageMock.On("ListMessages", mock.Anything, "c1").Return([]models.Message{
		{ID: "m1", ConversationID: "c1", SenderID: "u1", Text: "Hi"},
		{ID: "m2", ConversationID: "c1", SenderID: "u2", Text: "Hello"},
	}, nil)
	storageMock.On("MarkMessagesRead", mock.Anything, "c1", "u2").Return(int64(1), nil)

	svc := messaging.NewService(storageMock)

	views, err := svc.ListMessages(ctx, "c1", "u2")

	assert.NoError(t, err)
	assert.Len(t, views, 2)
	assert.Equal(t, "m1", views[0].ID)
	assert.Equal(t, "Alice", views[0].Sender.Name)
	assert.Equal(t, "Bob", views[1].Sender.Name)
	storageMock.AssertCalled(t, "MarkMessagesRead", mock.Anything, "c1", "u2")
}

func TestListMessages_MarkReadFailureStillReturnsMessages(t *testing.T) {
	storageMock := new(MockStorage)
	stubUsers(storageMock)
	conv := &models.Conversation{ID: "c1", ParticipantIDs: pq.StringArray{"u1", "u2"}}
	storageMock.On("GetConversationByID", mock.Anything, "c1").Return(conv, nil)
	storageMock.On("ListMessages", mock.Anything, "c1").Return([]models.Message{
		{ID: "m1", ConversationID: "c1", SenderID: "u1", Text: "Hi"},
	}, nil)
	storageMock.On("MarkMessagesRead", mock.Anything, "c1", "u2").Return(int64(0), errors.New("timeout"))

	svc := messaging.NewService(storageMock)

	views, err := svc.ListMessages(ctx, "c1", "u2")

	assert.NoError(t, err, "read receipts are best-effort")
	assert.Len(t, views, 1)
}

func TestUnreadCount(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("CountUnread", mock.Anything, "u2").Return(int64(3), nil)

	svc := messaging.NewService(storageMock)

	n, err := svc.UnreadCount(ctx, "u2")

	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestUnreadCount_StoreFailureIsInternal(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("CountUnread", mock.Anything, "u2").Return(int64(0), errors.New("db down"))

	svc := messaging.NewService(storageMock)

	_, err := svc.UnreadCount(ctx, "u2")

	assert.Equal(t, apperr.Internal, apperr.KindOf(err))
	assert.Equal(t, "Server error", apperr.ClientMessage(err))
}
