package config

type WorkerKeyStruct struct {
	ScoreSessionsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	ScoreSessionsQueue: "score_sessions_queue",
}
