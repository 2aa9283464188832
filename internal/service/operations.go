package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ckfr/ops-allocation/internal/metrics"
	"github.com/ckfr/ops-allocation/internal/model"
	q "github.com/ckfr/ops-allocation/internal/queue"
	"github.com/ckfr/ops-allocation/internal/repository"
)

// OperationService saves operations and their highlighted ships.
type OperationService struct {
	ops         *repository.OperationRepo
	highlighted *repository.HighlightedShipRepo
	publisher   Publisher
	log         *slog.Logger
}

// NewOperationService wires an OperationService.  A nil publisher drops
// events.
func NewOperationService(ops *repository.OperationRepo, highlighted *repository.HighlightedShipRepo, publisher Publisher, log *slog.Logger) *OperationService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &OperationService{ops: ops, highlighted: highlighted, publisher: publisher, log: log.With("component", "operations")}
}

// Save creates or updates an operation.  Saving with IsActive set makes it
// the only active operation; the previous one is demoted in the same
// transaction.
func (s *OperationService) Save(ctx context.Context, actorID uint64, op *model.Operation) error {
	wasActive := false
	if op.ID != 0 && op.IsActive {
		if cur, err := s.ops.GetByID(ctx, op.ID); err == nil {
			wasActive = cur.IsActive
		}
	}
	demoted, err := s.ops.Save(ctx, op)
	if err != nil {
		return err
	}
	if !op.IsActive || wasActive {
		return nil
	}

	metrics.OperationActivations.Inc()
	s.log.Info("operation activated", "operation_id", op.ID, "demoted_id", demoted)
	ev := q.OperationActivatedEvent{
		OperationID: op.ID,
		Title:       op.Title,
		DemotedID:   demoted,
		ActivatedBy: actorID,
		ActivatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.PublishOperationActivated(ctx, ev); err != nil {
		s.log.Warn("operation.activated not published", "operation_id", op.ID, "err", err)
	}
	return nil
}

// OperationDetail is an operation with its highlighted ships.
type OperationDetail struct {
	model.Operation
	HighlightedShips []model.HighlightedShip `json:"highlighted_ships"`
}

// Get returns an operation with its highlighted ships.
func (s *OperationService) Get(ctx context.Context, id uint64) (*OperationDetail, error) {
	op, err := s.ops.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, op)
}

// Overview returns the active operation, or the most recently updated one
// when none is active.  repository.ErrOperationNotFound means there are no
// operations at all.
func (s *OperationService) Overview(ctx context.Context) (*OperationDetail, error) {
	op, err := s.ops.Overview(ctx)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, op)
}

// Active returns the active operation with its highlighted ships.
// repository.ErrOperationNotFound means no operation is active.
func (s *OperationService) Active(ctx context.Context) (*OperationDetail, error) {
	op, err := s.ops.Active(ctx)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, op)
}

func (s *OperationService) detail(ctx context.Context, op *model.Operation) (*OperationDetail, error) {
	hs, err := s.highlighted.ListByOperation(ctx, op.ID)
	if err != nil {
		return nil, err
	}
	return &OperationDetail{Operation: *op, HighlightedShips: hs}, nil
}

// HighlightedShipInput is one ship of a highlighted-ships edit.  Each Crew
// value is a raw roster entry parsed by ParseCrewNames: a JSON array, a
// JSON string or plain text with one name per line.
type HighlightedShipInput struct {
	ShipID uint64                     `json:"ship_id"`
	Crew   map[string]json.RawMessage `json:"crew"`
}

// rosterText turns a raw crew value into the text ParseCrewNames reads.
// JSON arrays are passed through; JSON strings are unquoted.
func rosterText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// SetHighlightedShips replaces the operation's highlighted ships and crew
// rosters.  The previous set is deleted and the new one inserted whole.
func (s *OperationService) SetHighlightedShips(ctx context.Context, operationID uint64, in []HighlightedShipInput) ([]model.HighlightedShip, error) {
	seen := map[uint64]bool{}
	ships := make([]model.HighlightedShip, 0, len(in))
	for _, h := range in {
		if h.ShipID == 0 {
			return nil, fmt.Errorf("%w: ship_id is required", repository.ErrInvalid)
		}
		if seen[h.ShipID] {
			return nil, fmt.Errorf("%w: ship %d listed twice", repository.ErrInvalid, h.ShipID)
		}
		seen[h.ShipID] = true

		byRole := make(map[string][]string, len(h.Crew))
		for role, raw := range h.Crew {
			byRole[strings.ToLower(strings.TrimSpace(role))] = ParseCrewNames(rosterText(raw))
		}
		crew, unknown := CrewAssignments(byRole)
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return nil, fmt.Errorf("%w: unknown crew roles %s", repository.ErrInvalid, strings.Join(unknown, ", "))
		}
		ships = append(ships, model.HighlightedShip{OperationID: operationID, ShipID: h.ShipID, Crew: crew})
	}
	if err := s.highlighted.ReplaceForOperation(ctx, operationID, ships); err != nil {
		return nil, err
	}
	return s.highlighted.ListByOperation(ctx, operationID)
}

// List returns all operations, most recently updated first.
func (s *OperationService) List(ctx context.Context) ([]model.Operation, error) {
	return s.ops.List(ctx)
}

// Delete removes an operation with its highlighted ships and rosters.
func (s *OperationService) Delete(ctx context.Context, id uint64) error {
	if err := s.ops.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("operation deleted", "operation_id", id)
	return nil
}
