package seed

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/notespace/internal/app/models"
	appRepos "github.com/yigit/notespace/internal/app/repositories"
)

// CreateDefaultData creates the default topic when no topic exists yet, so a
// fresh install has somewhere to upload to. An empty name disables seeding.
func CreateDefaultData(ctx context.Context, topicRepo appRepos.ITopicRepository, defaultTopic string, lgr zerolog.Logger) error {
	name := strings.TrimSpace(defaultTopic)
	if name == "" {
		lgr.Debug().Msg("Default topic seeding disabled")
		return nil
	}

	lgr.Info().Msg("Checking/Creating default data (topics)...")

	count, err := topicRepo.Count(ctx)
	if err != nil {
		lgr.Error().Err(err).Msg("Error counting topics")
		return err
	}
	if count > 0 {
		lgr.Info().Int64("topics", count).Msg("Topics already exist, skipping default topic")
		return nil
	}

	topic := &appModels.Topic{Name: name}
	if err := topicRepo.Create(ctx, topic); err != nil {
		lgr.Error().Err(err).Str("name", name).Msg("Error creating default topic")
		return err
	}

	lgr.Info().Int64("topicID", topic.ID).Str("name", name).Msg("Default topic created")
	return nil
}
