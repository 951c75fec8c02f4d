package main

import (
	"context"
	"time"

	"github.com/example/lab-inventory/internal/application"
	"github.com/example/lab-inventory/internal/events"
	"github.com/example/lab-inventory/internal/persistence"
	"github.com/example/lab-inventory/internal/scheduler"
)

type reservationRepositoryAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationRepositoryAdapter(repo persistence.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) CreateReservation(ctx context.Context, reservation application.Reservation) (int64, error) {
	return a.repo.CreateReservation(ctx, toPersistenceReservation(reservation))
}

func (a *reservationRepositoryAdapter) UpdateReservation(ctx context.Context, reservation application.Reservation) error {
	return a.repo.UpdateReservation(ctx, toPersistenceReservation(reservation))
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id int64) (application.ReservationView, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.ReservationView{}, err
	}
	return toApplicationReservationView(stored), nil
}

func (a *reservationRepositoryAdapter) ListReservations(ctx context.Context, filter application.ReservationFilter) ([]application.ReservationView, error) {
	models, err := a.repo.ListReservations(ctx, persistence.ReservationFilter{
		EquipmentID:      filter.EquipmentID,
		EndsOnOrAfter:    filter.StartDate,
		StartsOnOrBefore: filter.EndDate,
	})
	if err != nil {
		return nil, err
	}
	views := make([]application.ReservationView, 0, len(models))
	for _, model := range models {
		views = append(views, toApplicationReservationView(model))
	}
	return views, nil
}

func (a *reservationRepositoryAdapter) ListActiveReservations(ctx context.Context, equipmentID int64) ([]application.Reservation, error) {
	models, err := a.repo.ListActiveReservations(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	reservations := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		reservations = append(reservations, toApplicationReservation(model))
	}
	return reservations, nil
}

func (a *reservationRepositoryAdapter) DeleteReservation(ctx context.Context, id int64) error {
	return a.repo.DeleteReservation(ctx, id)
}

type equipmentRepositoryAdapter struct {
	repo persistence.EquipmentRepository
}

func newEquipmentRepositoryAdapter(repo persistence.EquipmentRepository) *equipmentRepositoryAdapter {
	return &equipmentRepositoryAdapter{repo: repo}
}

func (a *equipmentRepositoryAdapter) CreateEquipment(ctx context.Context, equipment application.Equipment) (int64, error) {
	return a.repo.CreateEquipment(ctx, toPersistenceEquipment(equipment))
}

func (a *equipmentRepositoryAdapter) UpdateEquipment(ctx context.Context, equipment application.Equipment) error {
	return a.repo.UpdateEquipment(ctx, toPersistenceEquipment(equipment))
}

func (a *equipmentRepositoryAdapter) GetEquipment(ctx context.Context, id int64) (application.EquipmentView, error) {
	stored, err := a.repo.GetEquipment(ctx, id)
	if err != nil {
		return application.EquipmentView{}, err
	}
	return toApplicationEquipmentView(stored), nil
}

func (a *equipmentRepositoryAdapter) ListEquipment(ctx context.Context, filter application.EquipmentFilter) ([]application.EquipmentView, error) {
	models, err := a.repo.ListEquipment(ctx, persistence.EquipmentFilter{
		Search:     filter.Search,
		Category:   filter.Category,
		Status:     filter.Status,
		LocationID: filter.LocationID,
	})
	if err != nil {
		return nil, err
	}
	views := make([]application.EquipmentView, 0, len(models))
	for _, model := range models {
		views = append(views, toApplicationEquipmentView(model))
	}
	return views, nil
}

func (a *equipmentRepositoryAdapter) DeleteEquipment(ctx context.Context, id int64) error {
	return a.repo.DeleteEquipment(ctx, id)
}

type locationRepositoryAdapter struct {
	repo persistence.LocationRepository
}

func newLocationRepositoryAdapter(repo persistence.LocationRepository) *locationRepositoryAdapter {
	return &locationRepositoryAdapter{repo: repo}
}

func (a *locationRepositoryAdapter) CreateLocation(ctx context.Context, location application.Location) (int64, error) {
	return a.repo.CreateLocation(ctx, toPersistenceLocation(location))
}

func (a *locationRepositoryAdapter) GetLocation(ctx context.Context, id int64) (application.Location, error) {
	stored, err := a.repo.GetLocation(ctx, id)
	if err != nil {
		return application.Location{}, err
	}
	return toApplicationLocation(stored), nil
}

func (a *locationRepositoryAdapter) ListLocations(ctx context.Context) ([]application.Location, error) {
	models, err := a.repo.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	locations := make([]application.Location, 0, len(models))
	for _, model := range models {
		locations = append(locations, toApplicationLocation(model))
	}
	return locations, nil
}

func (a *locationRepositoryAdapter) DeleteLocation(ctx context.Context, id int64) error {
	return a.repo.DeleteLocation(ctx, id)
}

type statsRepositoryAdapter struct {
	repo persistence.StatsRepository
}

func newStatsRepositoryAdapter(repo persistence.StatsRepository) *statsRepositoryAdapter {
	return &statsRepositoryAdapter{repo: repo}
}

func (a *statsRepositoryAdapter) InventoryStats(ctx context.Context, asOf time.Time) (application.InventoryStats, error) {
	stats, err := a.repo.InventoryStats(ctx, asOf)
	if err != nil {
		return application.InventoryStats{}, err
	}
	return application.InventoryStats{
		Equipment:          stats.Equipment,
		Locations:          stats.Locations,
		Reservations:       stats.Reservations,
		ActiveReservations: stats.ActiveReservations,
		EquipmentByStatus:  stats.EquipmentByStatus,
	}, nil
}

// eventPublisherAdapter turns application events into broker messages.
type eventPublisherAdapter struct {
	publisher events.Publisher
}

func newEventPublisherAdapter(publisher events.Publisher) *eventPublisherAdapter {
	return &eventPublisherAdapter{publisher: publisher}
}

func (a *eventPublisherAdapter) PublishReservationEvent(ctx context.Context, event application.ReservationEvent) error {
	return a.publisher.Publish(ctx, toBrokerEvent(event))
}

func toBrokerEvent(event application.ReservationEvent) events.ReservationEvent {
	r := event.Reservation
	return events.NewReservationEvent(string(event.Type), events.Reservation{
		ID:          r.ID,
		EquipmentID: r.EquipmentID,
		UserName:    r.UserName,
		UserEmail:   cloneString(r.UserEmail),
		StartDate:   scheduler.FormatDate(r.StartDate),
		EndDate:     scheduler.FormatDate(r.EndDate),
		StartTime:   cloneString(r.StartTime),
		EndTime:     cloneString(r.EndTime),
		Purpose:     cloneString(r.Purpose),
		Status:      string(r.Status),
	}, event.OccurredAt)
}

func toApplicationReservation(model persistence.Reservation) application.Reservation {
	return application.Reservation{
		ID:          model.ID,
		EquipmentID: model.EquipmentID,
		UserName:    model.UserName,
		UserEmail:   cloneString(model.UserEmail),
		StartDate:   model.StartDate,
		EndDate:     model.EndDate,
		StartTime:   cloneString(model.StartTime),
		EndTime:     cloneString(model.EndTime),
		Purpose:     cloneString(model.Purpose),
		Notes:       cloneString(model.Notes),
		Status:      application.ReservationStatus(model.Status),
		CreatedAt:   model.CreatedAt,
	}
}

func toApplicationReservationView(model persistence.ReservationView) application.ReservationView {
	return application.ReservationView{
		Reservation:    toApplicationReservation(model.Reservation),
		EquipmentName:  cloneString(model.EquipmentName),
		EquipmentModel: cloneString(model.EquipmentModel),
	}
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:          reservation.ID,
		EquipmentID: reservation.EquipmentID,
		UserName:    reservation.UserName,
		UserEmail:   cloneString(reservation.UserEmail),
		StartDate:   reservation.StartDate,
		EndDate:     reservation.EndDate,
		StartTime:   cloneString(reservation.StartTime),
		EndTime:     cloneString(reservation.EndTime),
		Purpose:     cloneString(reservation.Purpose),
		Notes:       cloneString(reservation.Notes),
		Status:      string(reservation.Status),
		CreatedAt:   reservation.CreatedAt,
	}
}

func toApplicationEquipment(model persistence.Equipment) application.Equipment {
	return application.Equipment{
		ID:              model.ID,
		Name:            model.Name,
		Model:           cloneString(model.Model),
		Manufacturer:    cloneString(model.Manufacturer),
		SerialNumber:    cloneString(model.SerialNumber),
		AssetTag:        cloneString(model.AssetTag),
		Category:        cloneString(model.Category),
		Status:          model.Status,
		LocationID:      cloneInt64(model.LocationID),
		CalibrationDate: cloneString(model.CalibrationDate),
		NextCalibration: cloneString(model.NextCalibration),
		Cost:            cloneFloat64(model.Cost),
		Notes:           cloneString(model.Notes),
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func toApplicationEquipmentView(model persistence.EquipmentView) application.EquipmentView {
	view := application.EquipmentView{Equipment: toApplicationEquipment(model.Equipment)}
	if model.Location != nil {
		location := toApplicationLocation(*model.Location)
		view.Location = &location
	}
	return view
}

func toPersistenceEquipment(equipment application.Equipment) persistence.Equipment {
	return persistence.Equipment{
		ID:              equipment.ID,
		Name:            equipment.Name,
		Model:           cloneString(equipment.Model),
		Manufacturer:    cloneString(equipment.Manufacturer),
		SerialNumber:    cloneString(equipment.SerialNumber),
		AssetTag:        cloneString(equipment.AssetTag),
		Category:        cloneString(equipment.Category),
		Status:          equipment.Status,
		LocationID:      cloneInt64(equipment.LocationID),
		CalibrationDate: cloneString(equipment.CalibrationDate),
		NextCalibration: cloneString(equipment.NextCalibration),
		Cost:            cloneFloat64(equipment.Cost),
		Notes:           cloneString(equipment.Notes),
		CreatedAt:       equipment.CreatedAt,
		UpdatedAt:       equipment.UpdatedAt,
	}
}

func toApplicationLocation(model persistence.Location) application.Location {
	return application.Location{
		ID:        model.ID,
		Building:  cloneString(model.Building),
		Room:      cloneString(model.Room),
		Cabinet:   cloneString(model.Cabinet),
		Shelf:     cloneString(model.Shelf),
		Bin:       cloneString(model.Bin),
		CreatedAt: model.CreatedAt,
	}
}

func toPersistenceLocation(location application.Location) persistence.Location {
	return persistence.Location{
		ID:        location.ID,
		Building:  cloneString(location.Building),
		Room:      cloneString(location.Room),
		Cabinet:   cloneString(location.Cabinet),
		Shelf:     cloneString(location.Shelf),
		Bin:       cloneString(location.Bin),
		CreatedAt: location.CreatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneInt64(value *int64) *int64 {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneFloat64(value *float64) *float64 {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
