package service

import "errors"

var (
	ErrEmptyQuestion      = errors.New("question must not be empty")
	ErrInvalidEntityID    = errors.New("entity id must be positive")
	ErrVectorStoreNotSet  = errors.New("vector store not set")
	ErrEntitySourceNotSet = errors.New("entity source not set")
	ErrEmbedderNotSet     = errors.New("embedding provider not set")
	ErrSynthesizerNotSet  = errors.New("synthesizer not set")
	ErrRetrievalFailed    = errors.New("failed to retrieve context")
	ErrEntityFetchFailed  = errors.New("failed to fetch entity")
	ErrAllChunksFailed    = errors.New("no chunk could be indexed")
)
