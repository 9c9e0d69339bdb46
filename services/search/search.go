package search

import (
	"rummage/db/searchdb"
	"rummage/logger"
)

type Service struct {
	logger logger.Logger
	db     searchdb.DB
}

func New(logger logger.Logger, db searchdb.DB) *Service {
	return &Service{
		logger: logger,
		db:     db,
	}
}

// Search returns ranked (path, rank) pairs for the query. A negative limit
// means no cap.
func (s *Service) Search(query string, limit int, offset int) (*searchdb.Response, error) {
	response, err := s.db.Search(query, limit, offset)
	if err != nil {
		s.logger.Error("search failed", "err", err.Error())
		return nil, err
	}

	s.logger.Info("search completed", "query", query, "results", len(response.Pairs), "search_time", response.SearchTime)
	return response, nil
}
