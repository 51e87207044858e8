package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwsupport/crf-provisioner/internal/model"
	"github.com/cwsupport/crf-provisioner/internal/repository/base"
)

type ScheduleTypeRepository struct {
	*base.Repository
}

func NewScheduleTypeRepository(pool *pgxpool.Pool) *ScheduleTypeRepository {
	return &ScheduleTypeRepository{Repository: base.NewRepository(pool)}
}

func (r *ScheduleTypeRepository) Upsert(ctx context.Context, scheduleType *model.ScheduleType) error {
	query := `
		INSERT INTO schedule_types (sched_type_code, sched_type_desc)
		VALUES ($1, $2)
		ON CONFLICT (sched_type_code) DO UPDATE
		SET sched_type_desc = EXCLUDED.sched_type_desc
	`
	_, err := r.ExecAffected(ctx, query, scheduleType.SchedTypeCode, scheduleType.SchedTypeDesc)
	if err != nil {
		return fmt.Errorf("upsert schedule type: %w", err)
	}
	return nil
}

func (r *ScheduleTypeRepository) Get(ctx context.Context, code string) (*model.ScheduleType, error) {
	query := `
		SELECT sched_type_code, sched_type_desc
		FROM schedule_types
		WHERE sched_type_code = $1
	`
	var scheduleType model.ScheduleType
	err := r.QueryRow(ctx, query, code).Scan(&scheduleType.SchedTypeCode, &scheduleType.SchedTypeDesc)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get schedule type: %w", err)
	}
	return &scheduleType, nil
}
