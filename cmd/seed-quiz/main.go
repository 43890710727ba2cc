package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/config"
	"github.com/stemsi/quizlr/internal/database"
	"github.com/stemsi/quizlr/internal/evaluation"
	"github.com/stemsi/quizlr/internal/logger"
	"github.com/stemsi/quizlr/internal/model"
	"github.com/stemsi/quizlr/internal/question"
	"github.com/stemsi/quizlr/internal/quiz"
	"github.com/stemsi/quizlr/internal/repository"
	"github.com/stemsi/quizlr/internal/service"
	"github.com/stemsi/quizlr/internal/storage"
)

var goTopic = uuid.MustParse("0b6c1f0e-5d43-4c2a-9f51-7e2a6d8b3c10")

func main() {
	var authorFlag string
	flag.StringVar(&authorFlag, "author", "", "Author user id (defaults to a new random id)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	author := uuid.New()
	if authorFlag != "" {
		var err error
		if author, err = uuid.Parse(authorFlag); err != nil {
			log.Fatal().Err(err).Msg("Invalid -author")
		}
	}

	var store storage.Store
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		if err := database.MigrateUp(cfg.DatabaseURL, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		store = storage.NewPostgresStore(pool)
	case config.BackendRedis:
		rdb, err := database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		store = storage.NewRedisStore(rdb, storage.DefaultRedisNamespace)
	default:
		log.Fatal().Str("storage", cfg.StorageBackend).Msg("Seeding needs a persistent storage backend")
	}

	quizRepo := repository.NewQuizRepository(store, quiz.NewRegistry())
	sessionRepo := repository.NewSessionRepository(store, quizRepo)
	scoreRepo := repository.NewScoreRepository(store)
	quizService := service.NewQuizService(quizRepo, sessionRepo, scoreRepo, evaluation.NewBankGenerator(quizRepo, nil))

	fmt.Println("=== Seeding sample quizzes ===")

	for _, req := range sampleQuizzes() {
		q, err := quizService.Create(ctx, req, author)
		if err != nil {
			log.Fatal().Err(err).Str("title", req.Title).Msg("Failed to create quiz")
		}
		fmt.Printf("Created quiz %q (%d questions) with ID: %s\n", q.Title(), q.Len(), q.ID())
	}

	fmt.Printf("\nDone. Author ID: %s\n", author)
}

func sampleQuizzes() []*model.CreateQuizRequest {
	threshold := 0.6
	allowSkip := true

	return []*model.CreateQuizRequest{
		{
			Title:            "Go fundamentals",
			Description:      "Goroutines, maps and interfaces.",
			PassThreshold:    &threshold,
			AllowSkip:        &allowSkip,
			ShowExplanations: string(quiz.ShowAfterEach),
			RandomizeAnswers: true,
			Tags:             []string{"go", "beginner"},
			Questions: questions(
				mustQuestion(question.TrueFalse{
					Statement:     "A nil map can be read from without panicking.",
					CorrectAnswer: true,
					Explanation:   "Reads on a nil map return the zero value; only writes panic.",
				}, 0.2, "maps"),
				mustQuestion(question.MultipleChoice{
					Prompt:       "Which keyword starts a goroutine?",
					Options:      []string{"go", "async", "spawn", "thread"},
					CorrectIndex: 0,
					Explanation:  "The go statement runs a call in a new goroutine.",
				}, 0.1, "concurrency"),
				mustQuestion(question.MultiSelect{
					Prompt:         "Which of these are reference-like types?",
					Options:        []string{"slice", "int", "map", "array"},
					CorrectIndices: []int{0, 2},
				}, 0.4, "types"),
				mustQuestion(question.FillInTheBlank{
					Template:       "A type implements an interface by implementing its {}.",
					CorrectAnswers: []string{"methods"},
				}, 0.3, "interfaces"),
			),
		},
		{
			Title:              "Concurrency deep dive",
			Description:        "Channels, synchronization and the memory model.",
			PassThreshold:      &threshold,
			ShowExplanations:   string(quiz.ShowAtEnd),
			RandomizeQuestions: true,
			Tags:               []string{"go", "advanced"},
			Questions: questions(
				mustQuestion(question.MatchPairs{
					Instruction:  "Match the primitive to its package",
					LeftItems:    []string{"Mutex", "Context", "Pipe"},
					RightItems:   []string{"io", "sync", "context"},
					CorrectPairs: []question.Pair{{Left: 0, Right: 1}, {Left: 1, Right: 2}, {Left: 2, Right: 0}},
				}, 0.5, "stdlib"),
				mustQuestion(question.InteractiveInterview{
					Topic:           "channels",
					InitialQuestion: "When would you use a buffered channel?",
					FollowUpRules: []question.FollowUpRule{
						{Condition: "mentions blocking", FollowUpQuestion: "What happens when the buffer is full?", Weight: 0.5},
					},
					ComprehensionThreshold: 0.6,
				}, 0.7, "channels"),
				mustQuestion(question.TopicExplanation{
					Topic:        "happens-before",
					Prompt:       "Explain the happens-before relation in the Go memory model.",
					KeyConcepts:  []string{"synchronization", "channel", "mutex", "ordering"},
					MinWordCount: 40,
				}, 0.9, "memory-model"),
			),
		},
	}
}

func mustQuestion(v question.Variant, difficulty float64, tags ...string) *question.Question {
	return question.MustNew(v, goTopic, difficulty, question.WithTags(tags...))
}

func questions(qs ...*question.Question) []question.Question {
	out := make([]question.Question, len(qs))
	for i, q := range qs {
		out[i] = *q
	}
	return out
}
