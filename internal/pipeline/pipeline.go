// Package pipeline orchestrates one comment generation request end to end:
// resolve the location, fetch the forecast, pick the report hour, retrieve
// candidates, run LLM selection with validation retries, rewrite and emit.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/soratext/soratext/internal/cache"
	"github.com/soratext/soratext/internal/client"
	"github.com/soratext/soratext/internal/config"
	"github.com/soratext/soratext/internal/corpus"
	"github.com/soratext/soratext/internal/forecast"
	"github.com/soratext/soratext/internal/llm"
	"github.com/soratext/soratext/internal/models"
	"github.com/soratext/soratext/internal/observability"
	"github.com/soratext/soratext/internal/rewrite"
	"github.com/soratext/soratext/internal/selector"
	"github.com/soratext/soratext/internal/validation"
)

// pairSeparator joins the two halves of the final comment.
const pairSeparator = "　"

// Fetcher fetches and caches a forecast collection for a coordinate.
type Fetcher interface {
	FetchAndCache(ctx context.Context, coord models.LocationCoordinate) (models.ForecastCollection, error)
}

// CommentSource serves past-comment queries.
type CommentSource interface {
	Query(typ models.CommentType, season, region string) []models.PastComment
}

// PairSelector picks a validated pair, or nil when none is acceptable.
type PairSelector interface {
	SelectPair(ctx context.Context, weatherCands, adviceCands []models.PastComment, vctx validation.Context, excluded map[string]bool) (*models.CommentPair, error)
}

// Request is one generation request.
type Request struct {
	Location string
	// Datetime overrides the morning-edition target date when non-zero.
	Datetime time.Time
	// Coord supplies the coordinate when the location is not preconfigured.
	Coord *models.LocationCoordinate
	// ExcludePrevious drops the texts emitted by the previous request for
	// this location from the candidate lists.
	ExcludePrevious bool
}

// Orchestrator wires the pipeline stages together. Build with New; all
// collaborators are required except the forecast cache and logger.
type Orchestrator struct {
	cfg       *config.Config
	fetcher   Fetcher
	comments  CommentSource
	selector  PairSelector
	engine    *validation.Engine
	rewriter  *rewrite.Rewriter
	fcache    *cache.LayeredCache // may be nil
	locations map[string]models.LocationCoordinate
	logger    *zap.Logger

	mu        sync.Mutex
	lastPairs map[string]models.CommentPair

	now func() time.Time
}

// New builds an orchestrator over the configured warm locations.
func New(cfg *config.Config, fetcher Fetcher, comments CommentSource, sel PairSelector, engine *validation.Engine, rewriter *rewrite.Rewriter, fcache *cache.LayeredCache, logger *zap.Logger) *Orchestrator {
	locations := make(map[string]models.LocationCoordinate, len(cfg.WarmLocations))
	for _, l := range cfg.WarmLocations {
		locations[l.Name] = l
	}
	return &Orchestrator{
		cfg:       cfg,
		fetcher:   fetcher,
		comments:  comments,
		selector:  sel,
		engine:    engine,
		rewriter:  rewriter,
		fcache:    fcache,
		locations: locations,
		logger:    logger,
		lastPairs: make(map[string]models.CommentPair),
		now:       func() time.Time { return time.Now().In(models.JST) },
	}
}

// Provider reports the LLM provider this orchestrator generates with.
func (o *Orchestrator) Provider() string { return o.cfg.LLMProvider }

// Run executes the pipeline under the configured request budget and returns
// the final state. The state always comes back non-nil, failed or not.
func (o *Orchestrator) Run(ctx context.Context, req Request) *models.GenerationState {
	if o.cfg.RequestBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RequestBudget)
		defer cancel()
	}
	start := time.Now()

	state := models.NewGenerationState(req.Location, o.targetTime(req), o.cfg.LLMProvider, o.cfg.MaxRetryCount)
	state.ExcludePrevious = req.ExcludePrevious
	outcome := o.run(ctx, req, state)

	observability.GenerationsTotal.WithLabelValues(outcome).Inc()
	observability.GenerationDuration.Observe(time.Since(start).Seconds())
	if o.logger != nil {
		o.logger.Info("generation finished",
			zap.String("request_id", state.RequestID),
			zap.String("location", state.LocationName),
			zap.String("outcome", outcome),
			zap.Int("retries", state.RetryCount),
			zap.Duration("elapsed", time.Since(start)))
	}
	return state
}

func (o *Orchestrator) run(ctx context.Context, req Request, state *models.GenerationState) string {
	stages := []struct {
		name string
		fn   func(context.Context, Request, *models.GenerationState) error
	}{
		{"input_validation", o.stageInput},
		{"fetch_forecast", o.stageFetch},
		{"select_hour", o.stageSelectHour},
		{"retrieve_comments", o.stageRetrieve},
	}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			state.AddError(stage.name, models.ErrKindTimeout, err.Error())
			return "error"
		}
		if err := stage.fn(ctx, req, state); err != nil {
			return "error"
		}
	}

	outcome := o.stageSelectPair(ctx, state)
	if outcome == "error" {
		return outcome
	}
	o.stageOutput(ctx, state)
	return outcome
}

func (o *Orchestrator) stageInput(_ context.Context, req Request, state *models.GenerationState) error {
	name, err := validation.ValidateLocation(req.Location, 1, 64)
	if err != nil {
		state.AddError("input_validation", models.ErrKindLocation, err.Error())
		return err
	}
	state.LocationName = name

	if req.Coord != nil {
		coord := *req.Coord
		coord.Name = name
		state.Location = &coord
	} else if coord, ok := o.locations[name]; ok {
		state.Location = &coord
	} else {
		err := fmt.Errorf("unknown location %q: no coordinate configured", name)
		state.AddError("input_validation", models.ErrKindLocation, err.Error())
		return err
	}
	return nil
}

func (o *Orchestrator) stageFetch(ctx context.Context, _ Request, state *models.GenerationState) error {
	coll, err := o.fetcher.FetchAndCache(ctx, *state.Location)
	if err != nil {
		state.AddError("fetch_forecast", client.ErrorKindFor(err), err.Error())
		return err
	}
	state.Metadata["forecast_count"] = len(coll.Forecasts)
	state.PeriodForecasts = coll.Forecasts
	return nil
}

func (o *Orchestrator) stageSelectHour(_ context.Context, _ Request, state *models.GenerationState) error {
	coll := models.ForecastCollection{
		LocationName: state.LocationName,
		Forecasts:    state.PeriodForecasts,
	}
	hours := forecast.ExtractReportHours(coll, state.TargetDatetime)
	if len(hours) == 0 {
		state.AddError("select_hour", models.ErrKindEmptyData, "no forecasts near any report hour")
		return fmt.Errorf("no report-hour forecasts")
	}
	state.PeriodForecasts = hours

	selected, _ := forecast.SelectPriority(hours, o.cfg.Thresholds)
	state.WeatherData = &selected
	state.Metadata["weather_trend"] = string(forecast.AnalyzeTrend(hours))
	return nil
}

func (o *Orchestrator) stageRetrieve(_ context.Context, _ Request, state *models.GenerationState) error {
	month := int(state.TargetDatetime.Month())
	var weatherCands, adviceCands []models.PastComment
	for _, season := range corpus.SeasonsForMonth(month) {
		weatherCands = append(weatherCands, o.comments.Query(models.CommentTypeWeather, season, "")...)
		adviceCands = append(adviceCands, o.comments.Query(models.CommentTypeAdvice, season, "")...)
	}
	if len(weatherCands) == 0 || len(adviceCands) == 0 {
		state.AddError("retrieve_comments", models.ErrKindCorpus,
			fmt.Sprintf("empty candidate set for month %d", month))
		return fmt.Errorf("empty corpus for month %d", month)
	}
	state.PastComments = append(weatherCands, adviceCands...)
	state.Metadata["candidate_count"] = len(state.PastComments)
	return nil
}

// stageSelectPair runs the selection retry loop: at most MaxRetryCount+1
// selector passes, excluding each rejected pair before the next. When no
// pair survives, the request fails and safe default copy is emitted.
func (o *Orchestrator) stageSelectPair(ctx context.Context, state *models.GenerationState) string {
	vctx := o.validationContext(state)
	weatherCands, adviceCands := splitByType(state.PastComments)

	if state.ExcludePrevious {
		if prev, ok := o.lastPair(state.LocationName); ok {
			weatherCands = dropText(weatherCands, prev.WeatherComment.Text)
			adviceCands = dropText(adviceCands, prev.AdviceComment.Text)
		}
	}

	for state.RetryCount = 0; state.RetryCount <= state.MaxRetryCount; state.RetryCount++ {
		if err := ctx.Err(); err != nil {
			state.AddError("select_pair", models.ErrKindTimeout, err.Error())
			return "error"
		}

		pair, err := o.selector.SelectPair(ctx, weatherCands, adviceCands, vctx, state.ExcludedPairs)
		if err != nil {
			state.AddError("select_pair", models.ErrKindSelection, err.Error())
			return "error"
		}
		if pair == nil {
			break
		}

		rewritten := o.rewriter.Rewrite(*pair, *state.WeatherData, state.PeriodForecasts, state.TargetDatetime, weatherCands)
		res := o.engine.ValidatePair(rewritten, vctx)
		state.ValidationResult = &res
		if !res.IsValid {
			state.ExcludePair(*pair)
			state.AddWarning(fmt.Sprintf("pair rejected after rewrite (%s): %s", res.Rule, res.Reason))
			continue
		}
		state.SelectedPair = &rewritten
		state.Success = true
		return "success"
	}

	state.AddError("select_pair", models.ErrKindSelection,
		"no candidate pair passed validation after retries")
	safe := llm.FallbackPair(*state.WeatherData, o.cfg.Thresholds, nil, nil)
	state.SelectedPair = &safe
	return "fallback"
}

func (o *Orchestrator) stageOutput(ctx context.Context, state *models.GenerationState) {
	pair := state.SelectedPair
	state.GeneratedComment = pair.WeatherComment.Text
	state.FinalComment = pair.WeatherComment.Text + pairSeparator + pair.AdviceComment.Text
	if state.Success {
		o.rememberPair(state.LocationName, *pair)
	}

	w := state.WeatherData
	state.Metadata["target_hour"] = w.Timestamp.In(models.JST).Hour()
	state.Metadata["weather_code"] = w.WeatherCode
	state.Metadata["weather_condition"] = string(w.Condition)
	state.Metadata["weather_description"] = w.Description
	state.Metadata["temperature"] = w.Temperature
	state.Metadata["precipitation"] = w.Precipitation
	state.Metadata["humidity"] = w.Humidity
	state.Metadata["llm_provider"] = state.LLMProvider
	state.Metadata["retry_count"] = state.RetryCount
	state.Metadata["selection_reason"] = pair.SelectionReason
	state.Metadata["weather_comment_text"] = pair.WeatherComment.Text
	state.Metadata["advice_comment_text"] = pair.AdviceComment.Text

	o.addTemperatureDiffs(ctx, state)
}

// lastPair returns the pair emitted by the previous successful request for
// the location, if any.
func (o *Orchestrator) lastPair(location string) (models.CommentPair, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.lastPairs[location]
	return p, ok
}

func (o *Orchestrator) rememberPair(location string, p models.CommentPair) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastPairs[location] = p
}

// addTemperatureDiffs enriches the metadata with day-over-day and 12-hour
// temperature differences plus the daily range, when the cache has history.
func (o *Orchestrator) addTemperatureDiffs(ctx context.Context, state *models.GenerationState) {
	if o.fcache == nil || state.WeatherData == nil {
		return
	}
	at := state.WeatherData.Timestamp
	temp := state.WeatherData.Temperature

	if prev, ok := o.fcache.TemperatureAt(ctx, state.LocationName, at.Add(-24*time.Hour)); ok {
		state.Metadata["temperature_diff_previous_day"] = temp - prev
	}
	if prev, ok := o.fcache.TemperatureAt(ctx, state.LocationName, at.Add(-12*time.Hour)); ok {
		state.Metadata["temperature_diff_12h"] = temp - prev
	}
	if dayRange, ok := o.fcache.DailyRange(state.LocationName, at); ok {
		state.Metadata["daily_temperature_range"] = dayRange
	}
}

func (o *Orchestrator) validationContext(state *models.GenerationState) validation.Context {
	return validation.Context{
		Weather:  *state.WeatherData,
		Target:   state.TargetDatetime,
		Location: state.LocationName,
		Coord:    state.Location,
		Period:   state.PeriodForecasts,
	}
}

// targetTime resolves the edition target: an explicit request datetime wins,
// otherwise the morning-edition rule applies at the priority report hour.
func (o *Orchestrator) targetTime(req Request) time.Time {
	if !req.Datetime.IsZero() {
		return req.Datetime.In(models.JST)
	}
	day := forecast.TargetDate(o.now())
	return time.Date(day.Year(), day.Month(), day.Day(), forecast.ReportHours[0], 0, 0, 0, models.JST)
}

func splitByType(comments []models.PastComment) (weather, advice []models.PastComment) {
	for _, c := range comments {
		switch c.Type {
		case models.CommentTypeWeather:
			weather = append(weather, c)
		case models.CommentTypeAdvice:
			advice = append(advice, c)
		}
	}
	return weather, advice
}

func dropText(comments []models.PastComment, text string) []models.PastComment {
	out := comments[:0:0]
	for _, c := range comments {
		if c.Text != text {
			out = append(out, c)
		}
	}
	return out
}

// compile-time interface checks for the production wiring.
var (
	_ Fetcher       = (*client.WxTechClient)(nil)
	_ CommentSource = (*corpus.Repository)(nil)
	_ PairSelector  = (*selector.Selector)(nil)
)
