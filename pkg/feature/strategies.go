package feature

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"regexp"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrymomot/togglekit/pkg/environment"
	"github.com/dmitrymomot/togglekit/pkg/lru"
)

// Names of the built-in strategies.
const (
	StrategyAlways      = "Always"
	StrategyAllowValues = "AllowValues"
	StrategyAllowList   = "AllowList"
	StrategyOS          = "OS"
	StrategyPercentage  = "Percentage"
	StrategyTargeted    = "Targeted"
	StrategyEnvironment = "Environment"
)

// Parameter keys understood by the built-in strategies.
const (
	ParamValue           = "value"
	ParamAllowValues     = "allow-values"
	ParamAllowListUser   = "allow-list-user"
	ParamAllowListSource = "allow-list-source"
	ParamOSName          = "os_name"
	ParamOSVersion       = "os_version"
	ParamOSArch          = "os_arch"
	ParamPercentage      = "percentage"
	ParamUserIDs         = "user-ids"
	ParamGroups          = "groups"
	ParamAllowList       = "allow-list"
	ParamDenyList        = "deny-list"
	ParamEnvironments    = "environments"
)

// DefaultStrategies returns a registry holding every built-in strategy
// under its default name.
func DefaultStrategies() *StrategyRegistry {
	return NewStrategyRegistry().
		MustRegister(StrategyAlways, &AlwaysStrategy{}).
		MustRegister(StrategyAllowValues, &AllowValuesStrategy{}).
		MustRegister(StrategyAllowList, NewAllowListStrategy()).
		MustRegister(StrategyOS, NewOSStrategy(nil)).
		MustRegister(StrategyPercentage, &PercentageStrategy{}).
		MustRegister(StrategyTargeted, NewTargetedStrategy()).
		MustRegister(StrategyEnvironment, NewEnvironmentStrategy())
}

// AlwaysStrategy returns the "value" parameter, true when unset.
type AlwaysStrategy struct{}

// Check implements Strategy.
func (s *AlwaysStrategy) Check(ctx context.Context, cfg StrategyConfig) (bool, error) {
	v, ok := cfg.Get(ParamValue)
	if !ok {
		return true, nil
	}
	value, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Join(ErrInvalidStrategy, fmt.Errorf("%s: %w", ParamValue, err))
	}
	return value, nil
}

// AllowValuesStrategy enables the feature when the subject, rendered as a
// string, is one of the comma-separated "allow-values".
type AllowValuesStrategy struct{}

// Check denies: there is no subject to compare.
func (s *AllowValuesStrategy) Check(ctx context.Context, cfg StrategyConfig) (bool, error) {
	return s.CheckSubject(ctx, cfg, nil)
}

// CheckSubject implements SubjectStrategy.
func (s *AllowValuesStrategy) CheckSubject(ctx context.Context, cfg StrategyConfig, subject any) (bool, error) {
	raw, ok := cfg.Get(ParamAllowValues)
	if !ok {
		return false, errors.Join(ErrInvalidStrategy, fmt.Errorf("missing %q parameter", ParamAllowValues))
	}
	value, ok := subjectString(subject)
	if !ok {
		return false, nil
	}
	return slices.Contains(splitList(raw), value), nil
}

// Session is the subject understood by AllowListStrategy.
type Session struct {
	User   string
	Source string
}

// SessionResolver turns an arbitrary subject (for example a query id) into a Session.
type SessionResolver func(ctx context.Context, subject any) (Session, bool)

// AllowListStrategy enables the feature for sessions whose user or source
// fully matches the "allow-list-user" or "allow-list-source" pattern.
type AllowListStrategy struct {
	resolve  SessionResolver
	patterns *patternCache
}

// AllowListOption configures an AllowListStrategy.
type AllowListOption func(*AllowListStrategy)

// WithSessionResolver sets how subjects are turned into sessions.
// By default Session and *Session subjects are accepted as is.
func WithSessionResolver(resolver SessionResolver) AllowListOption {
	return func(s *AllowListStrategy) {
		if resolver != nil {
			s.resolve = resolver
		}
	}
}

// NewAllowListStrategy creates an allow-list strategy.
func NewAllowListStrategy(opts ...AllowListOption) *AllowListStrategy {
	s := &AllowListStrategy{
		resolve:  sessionFromSubject,
		patterns: newPatternCache(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check denies: an allow list needs a session.
func (s *AllowListStrategy) Check(ctx context.Context, cfg StrategyConfig) (bool, error) {
	return false, nil
}

// CheckSubject implements SubjectStrategy.
func (s *AllowListStrategy) CheckSubject(ctx context.Context, cfg StrategyConfig, subject any) (bool, error) {
	session, ok := s.resolve(ctx, subject)
	if !ok {
		return false, nil
	}

	if p, ok := cfg.Get(ParamAllowListUser); ok {
		matched, err := s.patterns.match(p, session.User)
		if err != nil || matched {
			return matched, err
		}
	}
	if p, ok := cfg.Get(ParamAllowListSource); ok && session.Source != "" {
		return s.patterns.match(p, session.Source)
	}
	return false, nil
}

func sessionFromSubject(_ context.Context, subject any) (Session, bool) {
	switch v := subject.(type) {
	case Session:
		return v, true
	case *Session:
		if v == nil {
			return Session{}, false
		}
		return *v, true
	default:
		return Session{}, false
	}
}

// OSInfo describes the host operating system.
type OSInfo struct {
	Name    string
	Version string
	Arch    string
}

// HostOS reports the operating system the process runs on.
// The Go runtime does not expose an OS version, so Version is empty.
func HostOS() OSInfo {
	return OSInfo{Name: runtime.GOOS, Arch: runtime.GOARCH}
}

// OSStrategy enables the feature when any configured os_name, os_version or
// os_arch pattern fully matches the host.
type OSStrategy struct {
	info     func() OSInfo
	patterns *patternCache
}

// NewOSStrategy creates an OS strategy. A nil info function uses HostOS.
func NewOSStrategy(info func() OSInfo) *OSStrategy {
	if info == nil {
		info = HostOS
	}
	return &OSStrategy{info: info, patterns: newPatternCache()}
}

// Check implements Strategy.
func (s *OSStrategy) Check(ctx context.Context, cfg StrategyConfig) (bool, error) {
	host := s.info()
	checks := []struct{ key, value string }{
		{ParamOSName, host.Name},
		{ParamOSVersion, host.Version},
		{ParamOSArch, host.Arch},
	}
	for _, c := range checks {
		p, ok := cfg.Get(c.key)
		if !ok {
			continue
		}
		matched, err := s.patterns.match(p, c.value)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

// PercentageStrategy enables the feature for a stable share of subjects.
// Subjects are bucketed with FNV-1a so a subject always gets the same answer.
type PercentageStrategy struct{}

// Check enables only the 100% rollout; partial rollouts need a subject.
func (s *PercentageStrategy) Check(ctx context.Context, cfg StrategyConfig) (bool, error) {
	return s.CheckSubject(ctx, cfg, nil)
}

// CheckSubject implements SubjectStrategy.
func (s *PercentageStrategy) CheckSubject(ctx context.Context, cfg StrategyConfig, subject any) (bool, error) {
	percentage, err := percentageParam(cfg)
	if err != nil {
		return false, err
	}
	key, _ := subjectString(subject)
	return inRollout(key, percentage), nil
}

// TargetCriteria defines targeting criteria for the Targeted strategy.
type TargetCriteria struct {
	UserIDs    []string
	Groups     []string
	Percentage *int
	// AllowList always takes precedence over other criteria except DenyList
	AllowList []string
	// DenyList always takes precedence over all other criteria
	DenyList []string
}

// CriteriaFromConfig reads targeting criteria from strategy parameters.
func CriteriaFromConfig(cfg StrategyConfig) (TargetCriteria, error) {
	var c TargetCriteria
	if v, ok := cfg.Get(ParamUserIDs); ok {
		c.UserIDs = splitList(v)
	}
	if v, ok := cfg.Get(ParamGroups); ok {
		c.Groups = splitList(v)
	}
	if v, ok := cfg.Get(ParamAllowList); ok {
		c.AllowList = splitList(v)
	}
	if v, ok := cfg.Get(ParamDenyList); ok {
		c.DenyList = splitList(v)
	}
	if _, ok := cfg.Get(ParamPercentage); ok {
		p, err := percentageParam(cfg)
		if err != nil {
			return TargetCriteria{}, err
		}
		c.Percentage = &p
	}
	return c, nil
}

func (c TargetCriteria) isEmpty() bool {
	return c.UserIDs == nil && c.Groups == nil &&
		c.Percentage == nil && c.AllowList == nil &&
		c.DenyList == nil
}

// Extractor function types for retrieving evaluation data from context.
type (
	UserIDExtractor      func(ctx context.Context) string
	UserGroupsExtractor  func(ctx context.Context) []string
	EnvironmentExtractor func(ctx context.Context) string
)

// TargetedStrategy enables features for specific users, groups, or percentages.
// The user id is the subject when one is given, otherwise it comes from the
// user id extractor.
type TargetedStrategy struct {
	userIDExtractor     UserIDExtractor
	userGroupsExtractor UserGroupsExtractor
}

// TargetedStrategyOption is a function that configures a TargetedStrategy.
type TargetedStrategyOption func(*TargetedStrategy)

// WithUserIDExtractor sets the user ID extractor for the strategy.
func WithUserIDExtractor(extractor UserIDExtractor) TargetedStrategyOption {
	return func(s *TargetedStrategy) {
		s.userIDExtractor = extractor
	}
}

// WithUserGroupsExtractor sets the user groups extractor for the strategy.
func WithUserGroupsExtractor(extractor UserGroupsExtractor) TargetedStrategyOption {
	return func(s *TargetedStrategy) {
		s.userGroupsExtractor = extractor
	}
}

// NewTargetedStrategy creates a targeted strategy.
func NewTargetedStrategy(opts ...TargetedStrategyOption) *TargetedStrategy {
	s := &TargetedStrategy{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check implements Strategy.
func (s *TargetedStrategy) Check(ctx context.Context, cfg StrategyConfig) (bool, error) {
	return s.CheckSubject(ctx, cfg, nil)
}

// CheckSubject implements SubjectStrategy.
func (s *TargetedStrategy) CheckSubject(ctx context.Context, cfg StrategyConfig, subject any) (bool, error) {
	criteria, err := CriteriaFromConfig(cfg)
	if err != nil {
		return false, err
	}
	if criteria.isEmpty() {
		return false, errors.Join(ErrInvalidStrategy, errors.New("targeting criteria are empty"))
	}

	userID, ok := subjectString(subject)
	if !ok && s.userIDExtractor != nil {
		userID = s.userIDExtractor(ctx)
	}

	// Check deny list first (always takes precedence)
	if len(criteria.DenyList) > 0 {
		// Without a user id a deny list cannot be honored, so fail safe
		if userID == "" || slices.Contains(criteria.DenyList, userID) {
			return false, nil
		}
	}

	if userID != "" && (slices.Contains(criteria.AllowList, userID) || slices.Contains(criteria.UserIDs, userID)) {
		return true, nil
	}

	if s.inTargetedGroup(ctx, criteria.Groups) {
		return true, nil
	}

	if criteria.Percentage != nil {
		return inRollout(userID, *criteria.Percentage), nil
	}

	return false, nil
}

func (s *TargetedStrategy) inTargetedGroup(ctx context.Context, groups []string) bool {
	if len(groups) == 0 || s.userGroupsExtractor == nil {
		return false
	}
	for _, g := range s.userGroupsExtractor(ctx) {
		if slices.Contains(groups, g) {
			return true
		}
	}
	return false
}

// EnvironmentStrategy enables features in the environments listed in the
// "environments" parameter.
type EnvironmentStrategy struct {
	environmentExtractor EnvironmentExtractor
}

// EnvironmentStrategyOption is a function that configures an EnvironmentStrategy.
type EnvironmentStrategyOption func(*EnvironmentStrategy)

// WithEnvironmentExtractor sets the environment extractor for the strategy.
func WithEnvironmentExtractor(extractor EnvironmentExtractor) EnvironmentStrategyOption {
	return func(s *EnvironmentStrategy) {
		if extractor != nil {
			s.environmentExtractor = extractor
		}
	}
}

// NewEnvironmentStrategy creates an environment strategy. By default the
// environment is read with environment.FromContext.
func NewEnvironmentStrategy(opts ...EnvironmentStrategyOption) *EnvironmentStrategy {
	s := &EnvironmentStrategy{environmentExtractor: environment.FromContext}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check implements Strategy.
func (s *EnvironmentStrategy) Check(ctx context.Context, cfg StrategyConfig) (bool, error) {
	raw, _ := cfg.Get(ParamEnvironments)
	envs := splitList(raw)
	if len(envs) == 0 {
		return false, errors.Join(ErrInvalidStrategy, fmt.Errorf("missing %q parameter", ParamEnvironments))
	}

	env := s.environmentExtractor(ctx)
	if env == "" {
		return false, nil
	}
	return slices.Contains(envs, env), nil
}

func percentageParam(cfg StrategyConfig) (int, error) {
	raw, ok := cfg.Get(ParamPercentage)
	if !ok {
		return 0, errors.Join(ErrInvalidStrategy, fmt.Errorf("missing %q parameter", ParamPercentage))
	}
	p, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, errors.Join(ErrInvalidStrategy, fmt.Errorf("%s: %w", ParamPercentage, err))
	}
	if p < 0 || p > 100 {
		return 0, errors.Join(ErrInvalidStrategy, errors.New("percentage must be between 0 and 100"))
	}
	return p, nil
}

// inRollout reports whether key falls within the first percentage buckets.
func inRollout(key string, percentage int) bool {
	switch {
	case percentage <= 0:
		return false
	case percentage >= 100:
		return true
	case key == "":
		return false
	}
	hash := fnv.New32a()
	hash.Write([]byte(key))
	return int(hash.Sum32()%100) < percentage
}

// subjectString renders a subject for comparison. Nil subjects report false.
func subjectString(subject any) (string, bool) {
	switch v := subject.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// patternCacheSize bounds the compiled patterns kept per strategy.
const patternCacheSize = 256

// patternCache compiles full-match regular expressions once per pattern.
type patternCache struct {
	compiled *lru.Cache[string, *regexp.Regexp]
}

func newPatternCache() *patternCache {
	return &patternCache{compiled: lru.New[string, *regexp.Regexp](patternCacheSize)}
}

func (c *patternCache) match(pattern, value string) (bool, error) {
	re, ok := c.compiled.Get(pattern)
	if !ok {
		var err error
		re, err = regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return false, errors.Join(ErrInvalidStrategy, fmt.Errorf("pattern %q: %w", pattern, err))
		}
		c.compiled.Add(pattern, re)
	}
	return re.MatchString(value), nil
}
