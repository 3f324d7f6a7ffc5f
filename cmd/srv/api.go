package main

import (
	"fmt"
	"net/http"

	"github.com/questforge/backend/internal/middleware"
	"github.com/questforge/backend/pkg/router"
	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(ct *cli.Context) error {
	s.loadConfig()
	s.loadLogger()
	s.loadDatabase()
	s.loadEndpoint()
	s.loadRepos()
	s.loadDomains()
	s.loadRouter()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", s.configs.ApiServer.Port),
		Handler: s.router.Handler(),
	}

	s.logger.Infof("Starting server on port %s", s.configs.ApiServer.Port)
	if err := s.server.ListenAndServe(); err != nil {
		return err
	}

	return nil
}

func (s *srv) loadRouter() {
	s.router = router.New(s.db, *s.configs, s.logger)
	s.router.AddCloser(middleware.Logger())

	authRouter := s.router.Branch()
	authVerifier := middleware.NewAuthVerifier().WithAccessToken()
	authRouter.Before(authVerifier.Middleware())
	{
		router.POST(authRouter, "/submitTask", s.submissionDomain.Submit)
		router.POST(authRouter, "/claimAttestation", s.submissionDomain.ClaimAttestation)
		router.POST(authRouter, "/reviewSubmission", s.submissionDomain.Review)
		router.GET(authRouter, "/getSubmission", s.submissionDomain.GetSubmission)
		router.GET(authRouter, "/getPendingReviewList", s.submissionDomain.GetPendingReviewList)
	}
}
