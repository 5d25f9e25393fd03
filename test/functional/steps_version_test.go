package functional

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"

	"github.com/lux-pm/lux/internal/version"
)

func registerVersionSteps(ctx *godog.ScenarioContext) {
	ctx.Step(`^a version requirement "([^"]*)"$`, aVersionRequirement)
	ctx.Step(`^it matches version "([^"]*)"$`, itMatchesVersion)
	ctx.Step(`^it does not match version "([^"]*)"$`, itDoesNotMatchVersion)
}

func aVersionRequirement(ctx context.Context, raw string) error {
	s := getState(ctx)
	s.req, s.reqErr = version.ParseReq(raw)
	return s.reqErr
}

func itMatchesVersion(ctx context.Context, raw string) error {
	s := getState(ctx)
	v, err := version.Parse(raw)
	if err != nil {
		return err
	}
	if !s.req.Matches(v) {
		return fmt.Errorf("expected %q to match %q, it did not", s.req.String(), raw)
	}
	return nil
}

func itDoesNotMatchVersion(ctx context.Context, raw string) error {
	s := getState(ctx)
	v, err := version.Parse(raw)
	if err != nil {
		return err
	}
	if s.req.Matches(v) {
		return fmt.Errorf("expected %q not to match %q, but it did", s.req.String(), raw)
	}
	return nil
}
