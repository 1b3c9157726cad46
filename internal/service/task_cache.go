package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/observability"
)

const taskCachePrefix = "tasks:v1:teacher:"

// taskListCache keeps per-teacher task listings in Redis. A nil client
// disables caching.
type taskListCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

type cachedTask struct {
	Task     models.Task     `json:"task"`
	Question models.Question `json:"question"`
}

func newTaskListCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *taskListCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &taskListCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "task_cache").Logger(),
	}
}

func (c *taskListCache) key(teacherID string) string {
	return taskCachePrefix + teacherID
}

func (c *taskListCache) fetch(ctx context.Context, teacherID string) ([]models.Task, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, c.key(teacherID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("teacher_id", teacherID).Msg("failed to read task cache")
		}
		return nil, false
	}

	var entries []cachedTask
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		c.logger.Warn().Err(err).Msg("failed to decode task cache")
		return nil, false
	}

	tasks := make([]models.Task, 0, len(entries))
	for _, entry := range entries {
		task := entry.Task
		task.Question = entry.Question
		tasks = append(tasks, task)
	}
	observability.TaskCacheRequests().WithLabelValues("hit").Inc()
	return tasks, true
}

func (c *taskListCache) store(ctx context.Context, teacherID string, tasks []models.Task) {
	if c == nil || c.client == nil {
		return
	}
	observability.TaskCacheRequests().WithLabelValues("miss").Inc()

	entries := make([]cachedTask, 0, len(tasks))
	for _, task := range tasks {
		entries = append(entries, cachedTask{Task: task, Question: task.Question})
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to encode task cache")
		return
	}
	if err := c.client.Set(ctx, c.key(teacherID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to store task cache")
	}
}

func (c *taskListCache) invalidate(ctx context.Context, teacherID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, c.key(teacherID)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("teacher_id", teacherID).Msg("failed to invalidate task cache")
	}
}
