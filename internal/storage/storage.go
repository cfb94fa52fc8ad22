package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"vetline/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("storage: record not found")

// Storage is the persistence boundary used by the hub and HTTP handlers.
// It covers the PostgreSQL archive (rooms, calls, callbacks, staff) and the
// Redis event bridge used to reach connections on other nodes.
type Storage interface {
	SaveRoomRecord(room *models.RoomRecord) error
	CloseRoomRecord(roomID string) error
	GetActiveRoomIDs() ([]string, error)

	SaveCallRecord(rec *models.CallRecord) error

	SaveCallback(cb *models.CallbackRequest) error
	ListOpenCallbacks() ([]models.CallbackRequest, error)
	MarkCallbackContacted(id string) error

	UpsertStaffProfile(p *models.StaffProfile) error
	ListStaffByRole(role string) ([]models.StaffProfile, error)

	PublishEvent(connectionID string, ev models.Event) error
	SubscribeEvents() *redis.PubSub
}

// eventChannelPrefix namespaces per-connection bridge channels in Redis.
const eventChannelPrefix = "events:"

// EventChannel returns the Redis channel carrying outbound events for one
// connection id.
func EventChannel(connectionID string) string {
	return eventChannelPrefix + connectionID
}

// Service implements Storage over GORM and go-redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewService constructs the storage service. The redis client may be nil
// for tooling that only needs the database (e.g. the admin CLI).
func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// SaveRoomRecord upserts a room record.
func (s *Service) SaveRoomRecord(room *models.RoomRecord) error {
	return s.DB.Save(room).Error
}

// CloseRoomRecord marks a room inactive and stamps EndedAt.
func (s *Service) CloseRoomRecord(roomID string) error {
	return s.DB.Model(&models.RoomRecord{}).
		Where("room_id = ?", roomID).
		Updates(map[string]interface{}{
			"is_active": false,
			"ended_at":  time.Now(),
		}).Error
}

// GetActiveRoomIDs lists rooms that were open when the process last ran;
// used at startup to close records orphaned by a crash.
func (s *Service) GetActiveRoomIDs() ([]string, error) {
	var roomIDs []string
	if err := s.DB.Model(&models.RoomRecord{}).
		Where("is_active = ?", true).
		Pluck("room_id", &roomIDs).Error; err != nil {
		log.Printf("ERROR: failed to retrieve active room ids: %v", err)
		return nil, err
	}
	return roomIDs, nil
}

// SaveCallRecord archives a terminal call session.
func (s *Service) SaveCallRecord(rec *models.CallRecord) error {
	if err := s.DB.Save(rec).Error; err != nil {
		log.Printf("ERROR: failed to archive call %s: %v", rec.CallID, err)
		return err
	}
	return nil
}

// SaveCallback stores a leave-a-callback request.
func (s *Service) SaveCallback(cb *models.CallbackRequest) error {
	return s.DB.Create(cb).Error
}

// ListOpenCallbacks returns callbacks not yet contacted, oldest first so
// staff work the queue fairly.
func (s *Service) ListOpenCallbacks() ([]models.CallbackRequest, error) {
	var callbacks []models.CallbackRequest
	err := s.DB.Where("status = ?", "open").
		Order("created_at asc").
		Find(&callbacks).Error
	if err != nil {
		return nil, err
	}
	return callbacks, nil
}

// MarkCallbackContacted resolves a callback request.
func (s *Service) MarkCallbackContacted(id string) error {
	result := s.DB.Model(&models.CallbackRequest{}).
		Where("id = ?", id).
		Update("status", "contacted")
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertStaffProfile refreshes the local staff directory entry on every
// staff registration.
func (s *Service) UpsertStaffProfile(p *models.StaffProfile) error {
	return s.DB.Save(p).Error
}

// ListStaffByRole returns directory entries for one role, or all staff for
// an empty role.
func (s *Service) ListStaffByRole(role string) ([]models.StaffProfile, error) {
	var staff []models.StaffProfile
	q := s.DB.Order("last_seen_at desc")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if err := q.Find(&staff).Error; err != nil {
		return nil, err
	}
	return staff, nil
}

// PublishEvent pushes an outbound event onto the per-connection Redis
// channel so another node hosting that connection can deliver it. Redis
// preserves publish order per channel, which is what keeps per-room message
// ordering intact across nodes.
func (s *Service) PublishEvent(connectionID string, ev models.Event) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, EventChannel(connectionID), payload).Err()
}

// SubscribeEvents pattern-subscribes to every per-connection channel. Each
// node filters for connections it actually hosts.
func (s *Service) SubscribeEvents() *redis.PubSub {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.PSubscribe(s.Ctx, eventChannelPrefix+"*")
}
