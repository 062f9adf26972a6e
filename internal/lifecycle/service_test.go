package lifecycle_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/lifecycle"
	"ms-booking/internal/models"
)

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) CreateTickets(tickets []models.Ticket) error {
	args := m.Called(tickets)
	return args.Error(0)
}

func (m *MockDBLayer) GetTicketByID(id string) (*models.Ticket, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockDBLayer) UpdateTicket(ticket models.Ticket) error {
	args := m.Called(ticket)
	return args.Error(0)
}

func (m *MockDBLayer) GetTicketsByUser(userID string) ([]models.Ticket, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Ticket), args.Error(1)
}

func (m *MockDBLayer) UserExists(id string) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDBLayer) EventExists(id string) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishTicketReserved(ticket models.Ticket) error {
	args := m.Called(ticket)
	return args.Error(0)
}

func (m *MockPublisher) PublishTicketPurchased(ticket models.Ticket) error {
	args := m.Called(ticket)
	return args.Error(0)
}

func (m *MockPublisher) PublishTicketReleased(ticket models.Ticket) error {
	args := m.Called(ticket)
	return args.Error(0)
}

func newTestService(db *MockDBLayer, kafka *MockPublisher) *lifecycle.Service {
	return lifecycle.NewService(db, nil, kafka, nil, nil, nil, 15*time.Minute)
}

func availableTicket() *models.Ticket {
	return &models.Ticket{
		ID:         "ticket-1",
		EventID:    "event-1",
		SeatNumber: 2,
		Type:       models.TypeStandard,
		Status:     models.TicketAvailable,
		Price:      10,
	}
}

func TestAllocateForEventSplitsVIPAndStandard(t *testing.T) {
	db := new(MockDBLayer)
	kafka := new(MockPublisher)
	service := newTestService(db, kafka)

	var created []models.Ticket
	db.On("CreateTickets", mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(0).([]models.Ticket)
	}).Return(nil)

	require.NoError(t, service.AllocateForEvent("event-1", 3, 10, 50, 1))

	require.Len(t, created, 3)
	assert.Equal(t, models.TypeVIP, created[0].Type)
	assert.Equal(t, 50.0, created[0].Price)
	for i, ticket := range created {
		assert.Equal(t, i+1, ticket.SeatNumber)
		assert.Equal(t, models.TicketAvailable, ticket.Status)
		assert.Empty(t, ticket.UserID)
		assert.Equal(t, "event-1", ticket.EventID)
	}
	assert.Equal(t, models.TypeStandard, created[1].Type)
	assert.Equal(t, 10.0, created[1].Price)
	assert.Equal(t, models.TypeStandard, created[2].Type)
}

func TestAllocateForEventClampsOversizedVIPCount(t *testing.T) {
	db := new(MockDBLayer)
	kafka := new(MockPublisher)
	service := newTestService(db, kafka)

	var created []models.Ticket
	db.On("CreateTickets", mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(0).([]models.Ticket)
	}).Return(nil)

	require.NoError(t, service.AllocateForEvent("event-1", 2, 10, 50, 10))

	require.Len(t, created, 2)
	for _, ticket := range created {
		assert.Equal(t, models.TypeVIP, ticket.Type)
		assert.Equal(t, 50.0, ticket.Price)
	}
}

func TestReserveAvailableTicket(t *testing.T) {
	db := new(MockDBLayer)
	kafka := new(MockPublisher)
	service := newTestService(db, kafka)

	db.On("GetTicketByID", "ticket-1").Return(availableTicket(), nil)
	db.On("UserExists", "user-1").Return(true, nil)
	db.On("UpdateTicket", mock.MatchedBy(func(ticket models.Ticket) bool {
		return ticket.Status == models.TicketReserved && ticket.UserID == "user-1"
	})).Return(nil)
	kafka.On("PublishTicketReserved", mock.Anything).Return(nil)

	before := time.Now()
	expiresAt, err := service.Reserve("ticket-1", "user-1")
	require.NoError(t, err)

	assert.WithinDuration(t, before.Add(15*time.Minute), expiresAt, 2*time.Second)
	db.AssertExpectations(t)
	kafka.AssertExpectations(t)
}

func TestReserveNonAvailableTicketConflicts(t *testing.T) {
	db := new(MockDBLayer)
	kafka := new(MockPublisher)
	service := newTestService(db, kafka)

	ticket := availableTicket()
	ticket.Status = models.TicketReserved
	ticket.UserID = "user-2"
	db.On("GetTicketByID", "ticket-1").Return(ticket, nil)
	db.On("UserExists", "user-1").Return(true, nil)

	_, err := service.Reserve("ticket-1", "user-1")
	assert.ErrorIs(t, err, lifecycle.ErrConflict)
	db.AssertNotCalled(t, "UpdateTicket", mock.Anything)
}

func TestReserveMissingTicket(t *testing.T) {
	db := new(MockDBLayer)
	kafka := new(MockPublisher)
	service := newTestService(db, kafka)

	db.On("GetTicketByID", "ticket-1").Return(nil, sql.ErrNoRows)

	_, err := service.Reserve("ticket-1", "user-1")
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func TestReserveMissingUser(t *testing.T) {
	db := new(MockDBLayer)
	kafka := new(MockPublisher)
	service := newTestService(db, kafka)

	db.On("GetTicketByID", "ticket-1").Return(availableTicket(), nil)
	db.On("UserExists", "user-1").Return(false, nil)

	_, err := service.Reserve("ticket-1", "user-1")
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
	db.AssertNotCalled(t, "UpdateTicket", mock.Anything)
}

func TestPurchaseAvailableTicket(t *testing.T) {
	db := new(MockDBLayer)
	kafka := new(MockPublisher)
	service := newTestService(db, kafka)

	db.On("UserExists", "user-1").Return(true, nil)
	db.On("GetTicketByID", "ticket-1").Return(availableTicket(), nil)
	db.On("UpdateTicket", mock.MatchedBy(func(ticket models.Ticket) bool {
		return ticket.Status == models.TicketSold && ticket.UserID == "user-1"
	})).Return(nil)
	kafka.On("PublishTicketPurchased", mock.Anything).Return(nil)

	ticket, err := service.Purchase("user-1", "ticket-1")
	require.NoError(t, err)
	assert.Equal(t, models.TicketSold, ticket.Status)
	assert.Equal(t, "user-1", ticket.UserID)
}

func TestPurchaseOwnReservation(t *testing.T) {
	db := new(MockDBLayer)
	kafka := new(MockPublisher)
	service := newTestService(db, kafka)

	reserved := availableTicket()
	reserved.Status = models.TicketReserved
	reserved.UserID = "user-1"

	db.On("UserExists", "user-1").Return(true, nil)
	db.On("GetTicketByID", "ticket-1").Return(reserved, nil)
	db.On("UpdateTicket", mock.MatchedBy(func(ticket models.Ticket) bool {
		return ticket.Status == models.TicketSold && ticket.UserID == "user-1"
	})).Return(nil)
	kafka.On("PublishTicketPurchased", mock.Anything).Return(nil)

	_, err := service.Purchase("user-1", "ticket-1")
	assert.NoError(t, err)
}

func TestPurchaseSomeoneElsesReservationConflicts(t *testing.T) {
	db := new(MockDBLayer)
	kafka := new(MockPublisher)
	service := newTestService(db, kafka)

	reserved := availableTicket()
	reserved.Status = models.TicketReserved
	reserved.UserID = "user-2"

	db.On("UserExists", "user-1").Return(true, nil)
	db.On("GetTicketByID", "ticket-1").Return(reserved, nil)

	_, err := service.Purchase("user-1", "ticket-1")
	assert.ErrorIs(t, err, lifecycle.ErrConflict)
	db.AssertNotCalled(t, "UpdateTicket", mock.Anything)
}

func TestPurchaseSoldTicketConflicts(t *testing.T) {
	db := new(MockDBLayer)
	kafka := new(MockPublisher)
	service := newTestService(db, kafka)

	sold := availableTicket()
	sold.Status = models.TicketSold
	sold.UserID = "user-2"

	db.On("UserExists", "user-1").Return(true, nil)
	db.On("GetTicketByID", "ticket-1").Return(sold, nil)

	_, err := service.Purchase("user-1", "ticket-1")
	assert.ErrorIs(t, err, lifecycle.ErrConflict)
}

func TestExpireReleasesHeldReservation(t *testing.T) {
	db := new(MockDBLayer)
	kafka := new(MockPublisher)
	service := newTestService(db, kafka)

	reserved := availableTicket()
	reserved.Status = models.TicketReserved
	reserved.UserID = "user-1"

	db.On("GetTicketByID", "ticket-1").Return(reserved, nil)
	db.On("UpdateTicket", mock.MatchedBy(func(ticket models.Ticket) bool {
		return ticket.Status == models.TicketAvailable && ticket.UserID == ""
	})).Return(nil)
	kafka.On("PublishTicketReleased", mock.Anything).Return(nil)

	require.NoError(t, service.ExpireReservation("ticket-1", "user-1"))
	db.AssertExpectations(t)
}

func TestExpireAfterPurchaseIsNoop(t *testing.T) {
	db := new(MockDBLayer)
	kafka := new(MockPublisher)
	service := newTestService(db, kafka)

	sold := availableTicket()
	sold.Status = models.TicketSold
	sold.UserID = "user-1"

	db.On("GetTicketByID", "ticket-1").Return(sold, nil)

	require.NoError(t, service.ExpireReservation("ticket-1", "user-1"))
	db.AssertNotCalled(t, "UpdateTicket", mock.Anything)
	kafka.AssertNotCalled(t, "PublishTicketReleased", mock.Anything)
}

func TestExpireAfterReReservationIsNoop(t *testing.T) {
	db := new(MockDBLayer)
	kafka := new(MockPublisher)
	service := newTestService(db, kafka)

	// released and re-reserved by someone else before the stale timer fired
	reserved := availableTicket()
	reserved.Status = models.TicketReserved
	reserved.UserID = "user-2"

	db.On("GetTicketByID", "ticket-1").Return(reserved, nil)

	require.NoError(t, service.ExpireReservation("ticket-1", "user-1"))
	db.AssertNotCalled(t, "UpdateTicket", mock.Anything)
}

func TestExpireDeletedTicketIsNoop(t *testing.T) {
	db := new(MockDBLayer)
	kafka := new(MockPublisher)
	service := newTestService(db, kafka)

	db.On("GetTicketByID", "ticket-1").Return(nil, sql.ErrNoRows)

	assert.NoError(t, service.ExpireReservation("ticket-1", "user-1"))
}

func TestReleaseOnUserDeletionOverridesAnyStatus(t *testing.T) {
	db := new(MockDBLayer)
	kafka := new(MockPublisher)
	service := newTestService(db, kafka)

	reserved := *availableTicket()
	reserved.ID = "ticket-1"
	reserved.Status = models.TicketReserved
	reserved.UserID = "user-1"

	sold := *availableTicket()
	sold.ID = "ticket-2"
	sold.Status = models.TicketSold
	sold.UserID = "user-1"
	sold.QRCode = []byte("png")

	db.On("GetTicketsByUser", "user-1").Return([]models.Ticket{reserved, sold}, nil)
	db.On("UpdateTicket", mock.MatchedBy(func(ticket models.Ticket) bool {
		return ticket.Status == models.TicketAvailable && ticket.UserID == "" && ticket.QRCode == nil
	})).Return(nil).Twice()
	kafka.On("PublishTicketReleased", mock.Anything).Return(nil).Twice()

	require.NoError(t, service.ReleaseOnUserDeletion("user-1"))
	db.AssertExpectations(t)
	kafka.AssertExpectations(t)
}
