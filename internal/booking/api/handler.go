package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ms-booking/internal/availability"
	"ms-booking/internal/lifecycle"
	"ms-booking/internal/models"
	"ms-booking/internal/store"
)

// Handler translates the HTTP surface into entity store and lifecycle
// engine calls. Plain CRUD goes straight to the store; everything that
// moves a ticket between states goes through the lifecycle service.
type Handler struct {
	Store     *store.Store
	Lifecycle *lifecycle.Service
	Cache     *availability.Cache
}

func NewHandler(st *store.Store, lc *lifecycle.Service, cache *availability.Cache) *Handler {
	return &Handler{Store: st, Lifecycle: lc, Cache: cache}
}

// RegisterRoutes mounts every endpoint on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/event", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/{eventID}", h.GetEvent)
		r.Put("/{eventID}", h.UpdateEvent)
		r.Delete("/{eventID}", h.DeleteEvent)
		r.Post("/{eventID}/contract_performer/{performerID}", h.ContractPerformer)
		r.Get("/{eventID}/reserved_users/", h.ReservedUsers)
		r.Get("/{eventID}/purchased_users/", h.PurchasedUsers)
	})
	r.Get("/events/", h.ListEvents)
	r.Get("/events_available/", h.EventsAvailable)

	r.Route("/ticket", func(r chi.Router) {
		r.Post("/", h.CreateTicket)
		r.Get("/{ticketID}", h.GetTicket)
		r.Put("/{ticketID}", h.UpdateTicket)
		r.Delete("/{ticketID}", h.DeleteTicket)
		r.Put("/reserve/{ticketID}/{userID}", h.ReserveTicket)
	})

	r.Route("/user", func(r chi.Router) {
		r.Post("/", h.CreateUser)
		r.Get("/{userID}", h.GetUser)
		r.Put("/{userID}", h.UpdateUser)
		r.Delete("/{userID}", h.DeleteUser)
		r.Put("/{userID}/buy-ticket/{ticketID}/", h.BuyTicket)
		r.Get("/{userID}/tickets/", h.UserTickets)
	})

	r.Route("/performer", func(r chi.Router) {
		r.Post("/", h.CreatePerformer)
		r.Get("/{performerID}", h.GetPerformer)
		r.Put("/{performerID}", h.UpdatePerformer)
		r.Delete("/{performerID}", h.DeletePerformer)
	})
	r.Get("/performers/with_contracts/", h.PerformersWithContracts)
}

// ---------------- EVENTS ----------------

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var event models.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if event.Name == "" || event.Venue == "" {
		http.Error(w, "name and venue are required", http.StatusBadRequest)
		return
	}
	if event.SeatCount < 0 || event.VIPCount < 0 || event.StandardPrice < 0 || event.VIPPrice < 0 {
		http.Error(w, "seat counts and prices must not be negative", http.StatusBadRequest)
		return
	}

	event.ID = uuid.New().String()
	event.CreatedAt = time.Now()

	if err := h.Store.CreateEvent(event); err != nil {
		http.Error(w, "Failed to create event: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.Lifecycle.AllocateForEvent(event.ID, event.SeatCount, event.StandardPrice, event.VIPPrice, event.VIPCount); err != nil {
		http.Error(w, "Failed to allocate tickets: "+err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, event)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	event, err := h.Store.GetEventByID(eventID)
	if err != nil {
		respondStoreError(w, err, "Event not found")
		return
	}
	respondJSON(w, http.StatusOK, event)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	if _, err := h.Store.GetEventByID(eventID); err != nil {
		respondStoreError(w, err, "Event not found")
		return
	}

	var update models.Event
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	update.ID = eventID

	if err := h.Store.UpdateEvent(update); err != nil {
		http.Error(w, "Failed to update event: "+err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, update)
}

// DeleteEvent cascades: the event's tickets and contracts go with it.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	if _, err := h.Store.GetEventByID(eventID); err != nil {
		respondStoreError(w, err, "Event not found")
		return
	}

	if err := h.Store.DeleteTicketsByEvent(eventID); err != nil {
		http.Error(w, "Failed to delete event tickets: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := h.Store.DeleteContractsByEvent(eventID); err != nil {
		http.Error(w, "Failed to delete event contracts: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := h.Store.DeleteEvent(eventID); err != nil {
		http.Error(w, "Failed to delete event: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Store.ListEvents()
	if err != nil {
		http.Error(w, "Failed to list events: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	respondJSON(w, http.StatusOK, events)
}

// EventsAvailable lists events between now and the given date, each with
// its available-seat count. Counts come from the availability cache when
// warm, from the store otherwise.
func (h *Handler) EventsAvailable(w http.ResponseWriter, r *http.Request) {
	until, err := parseDateParam(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "Please provide a valid date parameter: "+err.Error(), http.StatusBadRequest)
		return
	}

	events, err := h.Store.ListEventsBetween(time.Now(), until)
	if err != nil {
		http.Error(w, "Failed to list events: "+err.Error(), http.StatusInternalServerError)
		return
	}

	available := make([]models.EventAvailability, 0, len(events))
	for _, event := range events {
		count, ok, err := h.Cache.Get(event.ID)
		if err != nil || !ok {
			count, err = h.Store.CountAvailableTickets(event.ID)
			if err != nil {
				http.Error(w, "Failed to count available seats: "+err.Error(), http.StatusInternalServerError)
				return
			}
			_ = h.Cache.Set(event.ID, count)
		}
		available = append(available, models.EventAvailability{
			EventID:        event.ID,
			Name:           event.Name,
			StartsAt:       event.StartsAt,
			SeatCount:      event.SeatCount,
			AvailableSeats: count,
		})
	}
	respondJSON(w, http.StatusOK, available)
}

func (h *Handler) ReservedUsers(w http.ResponseWriter, r *http.Request) {
	h.usersByTicketStatus(w, r, models.TicketReserved)
}

func (h *Handler) PurchasedUsers(w http.ResponseWriter, r *http.Request) {
	h.usersByTicketStatus(w, r, models.TicketSold)
}

func (h *Handler) usersByTicketStatus(w http.ResponseWriter, r *http.Request, status models.TicketStatus) {
	eventID := chi.URLParam(r, "eventID")
	exists, err := h.Store.EventExists(eventID)
	if err != nil {
		http.Error(w, "Failed to check event: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	users, err := h.Store.GetUsersByEventAndTicketStatus(eventID, status)
	if err != nil {
		http.Error(w, "Failed to list users: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	respondJSON(w, http.StatusOK, users)
}

func (h *Handler) ContractPerformer(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	performerID := chi.URLParam(r, "performerID")

	if ok, err := h.Store.EventExists(eventID); err != nil || !ok {
		respondExistence(w, err, "Event not found")
		return
	}
	if ok, err := h.Store.PerformerExists(performerID); err != nil || !ok {
		respondExistence(w, err, "Performer not found")
		return
	}

	exists, err := h.Store.ContractExists(eventID, performerID)
	if err != nil {
		http.Error(w, "Failed to check contract: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if exists {
		http.Error(w, "Performer is already contracted for this event", http.StatusBadRequest)
		return
	}

	contract := models.Contract{
		ID:          uuid.New().String(),
		EventID:     eventID,
		PerformerID: performerID,
		CreatedAt:   time.Now(),
	}
	if err := h.Store.CreateContract(contract); err != nil {
		http.Error(w, "Failed to create contract: "+err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, contract)
}

// ---------------- TICKETS ----------------

func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var ticket models.Ticket
	if err := json.NewDecoder(r.Body).Decode(&ticket); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	exists, err := h.Store.EventExists(ticket.EventID)
	if err != nil {
		http.Error(w, "Failed to check event: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	if ticket.Status == "" {
		ticket.Status = models.TicketAvailable
	}
	if msg := h.validateTicket(ticket); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	ticket.ID = uuid.New().String()
	ticket.CreatedAt = time.Now()

	if err := h.Store.CreateTicket(ticket); err != nil {
		http.Error(w, "Failed to create ticket: "+err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	ticket, err := h.Store.GetTicketByID(ticketID)
	if err != nil {
		respondStoreError(w, err, "Ticket not found")
		return
	}
	respondJSON(w, http.StatusOK, ticket)
}

func (h *Handler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	current, err := h.Store.GetTicketByID(ticketID)
	if err != nil {
		respondStoreError(w, err, "Ticket not found")
		return
	}

	var update models.Ticket
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	// A ticket belongs to its event for life.
	if update.EventID != "" && update.EventID != current.EventID {
		http.Error(w, "event_id of a ticket cannot change", http.StatusBadRequest)
		return
	}
	update.ID = current.ID
	update.EventID = current.EventID

	if msg := h.validateTicket(update); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	update.UpdatedAt = time.Now()
	if err := h.Store.UpdateTicket(update); err != nil {
		http.Error(w, "Failed to update ticket: "+err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, update)
}

func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	if _, err := h.Store.GetTicketByID(ticketID); err != nil {
		respondStoreError(w, err, "Ticket not found")
		return
	}
	if err := h.Store.DeleteTicket(ticketID); err != nil {
		http.Error(w, "Failed to delete ticket: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) ReserveTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	userID := chi.URLParam(r, "userID")

	expiresAt, err := h.Lifecycle.Reserve(ticketID, userID)
	if err != nil {
		respondLifecycleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":         "Ticket reserved successfully",
		"expiration_time": expiresAt,
	})
}

// validateTicket enforces the enum sets and the status/owner consistency
// rule: available tickets have no owner, reserved and sold tickets must
// reference an existing user.
func (h *Handler) validateTicket(ticket models.Ticket) string {
	if !ticket.Type.Valid() {
		return fmt.Sprintf("Invalid type %q. Must be one of: standard, vip", ticket.Type)
	}
	if !ticket.Status.Valid() {
		return fmt.Sprintf("Invalid status %q. Must be one of: available, reserved, sold", ticket.Status)
	}
	if ticket.SeatNumber < 1 {
		return "seat_number must be positive"
	}

	if ticket.Status == models.TicketAvailable {
		if ticket.UserID != "" {
			return "Invalid user_id for ticket status: available tickets cannot have an owner"
		}
		return ""
	}

	exists, err := h.Store.UserExists(ticket.UserID)
	if err != nil || !exists {
		return "Invalid user_id for ticket status: owner does not exist"
	}
	return ""
}

// ---------------- USERS ----------------

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if user.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()

	if err := h.Store.CreateUser(user); err != nil {
		http.Error(w, "Failed to create user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	user, err := h.Store.GetUserByID(userID)
	if err != nil {
		respondStoreError(w, err, "User not found")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := h.Store.GetUserByID(userID); err != nil {
		respondStoreError(w, err, "User not found")
		return
	}

	var update models.User
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	update.ID = userID

	if err := h.Store.UpdateUser(update); err != nil {
		http.Error(w, "Failed to update user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, update)
}

// DeleteUser releases every ticket the user holds (reserved or sold) back
// to available before removing the user itself. Tickets survive their
// owner.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := h.Store.GetUserByID(userID); err != nil {
		respondStoreError(w, err, "User not found")
		return
	}

	if err := h.Lifecycle.ReleaseOnUserDeletion(userID); err != nil {
		http.Error(w, "Failed to release user tickets: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := h.Store.DeleteUser(userID); err != nil {
		http.Error(w, "Failed to delete user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) BuyTicket(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ticketID := chi.URLParam(r, "ticketID")

	ticket, err := h.Lifecycle.Purchase(userID, ticketID)
	if err != nil {
		respondLifecycleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ticket)
}

// UserTickets lists the tickets the user has bought.
func (h *Handler) UserTickets(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	exists, err := h.Store.UserExists(userID)
	if err != nil {
		http.Error(w, "Failed to check user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	tickets, err := h.Store.GetTicketsByUserAndStatus(userID, models.TicketSold)
	if err != nil {
		http.Error(w, "Failed to list tickets: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	respondJSON(w, http.StatusOK, tickets)
}

// ---------------- PERFORMERS ----------------

func (h *Handler) CreatePerformer(w http.ResponseWriter, r *http.Request) {
	var performer models.Performer
	if err := json.NewDecoder(r.Body).Decode(&performer); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if performer.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	performer.ID = uuid.New().String()
	performer.CreatedAt = time.Now()

	if err := h.Store.CreatePerformer(performer); err != nil {
		http.Error(w, "Failed to create performer: "+err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, performer)
}

func (h *Handler) GetPerformer(w http.ResponseWriter, r *http.Request) {
	performerID := chi.URLParam(r, "performerID")
	performer, err := h.Store.GetPerformerByID(performerID)
	if err != nil {
		respondStoreError(w, err, "Performer not found")
		return
	}
	respondJSON(w, http.StatusOK, performer)
}

func (h *Handler) UpdatePerformer(w http.ResponseWriter, r *http.Request) {
	performerID := chi.URLParam(r, "performerID")
	if _, err := h.Store.GetPerformerByID(performerID); err != nil {
		respondStoreError(w, err, "Performer not found")
		return
	}

	var update models.Performer
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	update.ID = performerID

	if err := h.Store.UpdatePerformer(update); err != nil {
		http.Error(w, "Failed to update performer: "+err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, update)
}

// DeletePerformer cascades to the performer's contracts.
func (h *Handler) DeletePerformer(w http.ResponseWriter, r *http.Request) {
	performerID := chi.URLParam(r, "performerID")
	if _, err := h.Store.GetPerformerByID(performerID); err != nil {
		respondStoreError(w, err, "Performer not found")
		return
	}

	if err := h.Store.DeleteContractsByPerformer(performerID); err != nil {
		http.Error(w, "Failed to delete performer contracts: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := h.Store.DeletePerformer(performerID); err != nil {
		http.Error(w, "Failed to delete performer: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) PerformersWithContracts(w http.ResponseWriter, r *http.Request) {
	performers, err := h.Store.GetContractedPerformers()
	if err != nil {
		http.Error(w, "Failed to list performers: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if performers == nil {
		performers = []models.Performer{}
	}
	respondJSON(w, http.StatusOK, performers)
}

// ---------------- HELPERS ----------------

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondStoreError maps a store read failure: missing row is 404,
// anything else is a store-level failure and fatal to the request.
func respondStoreError(w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, notFoundMsg, http.StatusNotFound)
		return
	}
	http.Error(w, "Store error: "+err.Error(), http.StatusInternalServerError)
}

func respondExistence(w http.ResponseWriter, err error, notFoundMsg string) {
	if err != nil {
		http.Error(w, "Store error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	http.Error(w, notFoundMsg, http.StatusNotFound)
}

func respondLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, lifecycle.ErrConflict), errors.Is(err, lifecycle.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseDateParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("date is required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
