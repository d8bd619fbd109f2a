package clock

import (
	"errors"
	"testing"
)

func standardPhases() []Phase {
	return []Phase{
		{ID: "prep", Name: "Preparation", DurationSeconds: 120, SpeakerMode: SpeakerBoth, Order: 0, SharedClock: true},
		{ID: "opening_aff", Name: "Opening (Affirmative)", DurationSeconds: 180, SpeakerMode: SpeakerAffirmative, Order: 1},
		{ID: "free", Name: "Free Debate", DurationSeconds: 240, SpeakerMode: SpeakerBoth, Order: 2},
		{ID: "qa", Name: "Q&A", DurationSeconds: 0, SpeakerMode: SpeakerQA, Order: 3, Roles: FourRoles},
		{ID: "closing_neg", Name: "Closing (Negative)", DurationSeconds: 120, SpeakerMode: SpeakerNegative, Order: 4},
	}
}

func newClock(t *testing.T, phases []Phase, opts ...Option) *Clock {
	t.Helper()
	c, err := New(phases, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func advanceTo(t *testing.T, c *Clock, index int) {
	t.Helper()
	for c.PhaseIndex() < index {
		if _, err := c.AdvancePhase(); err != nil {
			t.Fatalf("AdvancePhase: %v", err)
		}
	}
}

func mustRemaining(t *testing.T, c *Clock, key string) int {
	t.Helper()
	v, ok := c.Remaining(key)
	if !ok {
		t.Fatalf("key %q not valid in phase %q", key, c.CurrentPhase().ID)
	}
	return v
}

func TestNewRejectsMalformedPhases(t *testing.T) {
	tests := []struct {
		name   string
		phases []Phase
	}{
		{"empty", nil},
		{"gap", []Phase{
			{ID: "a", DurationSeconds: 10, SpeakerMode: SpeakerAffirmative, Order: 0},
			{ID: "b", DurationSeconds: 10, SpeakerMode: SpeakerNegative, Order: 2},
		}},
		{"duplicate order", []Phase{
			{ID: "a", DurationSeconds: 10, SpeakerMode: SpeakerAffirmative, Order: 0},
			{ID: "b", DurationSeconds: 10, SpeakerMode: SpeakerNegative, Order: 0},
		}},
		{"not from zero", []Phase{
			{ID: "a", DurationSeconds: 10, SpeakerMode: SpeakerAffirmative, Order: 1},
		}},
		{"duplicate id", []Phase{
			{ID: "a", DurationSeconds: 10, SpeakerMode: SpeakerAffirmative, Order: 0},
			{ID: "a", DurationSeconds: 10, SpeakerMode: SpeakerNegative, Order: 1},
		}},
		{"negative duration", []Phase{
			{ID: "a", DurationSeconds: -1, SpeakerMode: SpeakerAffirmative, Order: 0},
		}},
		{"unknown mode", []Phase{
			{ID: "a", DurationSeconds: 10, SpeakerMode: "judge", Order: 0},
		}},
		{"bad role side", []Phase{
			{ID: "a", SpeakerMode: SpeakerQA, Order: 0, Roles: []Role{{ID: "x", Side: "judge"}}},
		}},
		{"roles outside qa", []Phase{
			{ID: "a", DurationSeconds: 10, SpeakerMode: SpeakerBoth, Order: 0, Roles: DefaultRoles},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.phases)
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestNewSortsByOrder(t *testing.T) {
	c := newClock(t, []Phase{
		{ID: "b", DurationSeconds: 20, SpeakerMode: SpeakerNegative, Order: 1},
		{ID: "a", DurationSeconds: 10, SpeakerMode: SpeakerAffirmative, Order: 0},
	})
	if got := c.CurrentPhase().ID; got != "a" {
		t.Errorf("expected first phase a, got %s", got)
	}
}

func TestNewRejectsNonPositiveAnswerAllotment(t *testing.T) {
	_, err := New(standardPhases(), WithAnswerAllotment(0))
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestInitializeSeedsEveryClock(t *testing.T) {
	phases := standardPhases()
	c := newClock(t, phases)
	for i, p := range phases {
		advanceTo(t, c, i)
		if !c.Paused() {
			t.Errorf("phase %s: expected paused", p.ID)
		}
		if c.ActiveKey() != "" {
			t.Errorf("phase %s: expected no active key, got %q", p.ID, c.ActiveKey())
		}
		for _, key := range c.ValidKeys() {
			want := p.DurationSeconds
			if p.SpeakerMode == SpeakerQA {
				want = DefaultAnswerSeconds
			}
			if got := mustRemaining(t, c, key); got != want {
				t.Errorf("phase %s key %s: expected %d, got %d", p.ID, key, want, got)
			}
		}
	}
}

func TestTickWhilePausedIsDropped(t *testing.T) {
	c := newClock(t, standardPhases())
	for i := 0; i < 5; i++ {
		if c.Tick() {
			t.Fatal("paused tick reported expiry")
		}
	}
	if got := mustRemaining(t, c, SingleKey); got != 120 {
		t.Errorf("expected 120, got %d", got)
	}

	// Skipped ticks are not caught up after resuming.
	if err := c.TogglePause(); err != nil {
		t.Fatal(err)
	}
	c.Tick()
	if got := mustRemaining(t, c, SingleKey); got != 119 {
		t.Errorf("expected 119, got %d", got)
	}
}

func TestTickCountsDownToZero(t *testing.T) {
	for _, n := range []int{1, 7, 10, 11, 25} {
		c := newClock(t, []Phase{{ID: "a", DurationSeconds: 10, SpeakerMode: SpeakerAffirmative, Order: 0}})
		if err := c.TogglePause(); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < n; i++ {
			c.Tick()
		}
		want := 10 - n
		if want < 0 {
			want = 0
		}
		if got := mustRemaining(t, c, SingleKey); got != want {
			t.Errorf("n=%d: expected %d, got %d", n, want, got)
		}
	}
}

func TestExpiryPausesInSameTick(t *testing.T) {
	c := newClock(t, []Phase{{ID: "a", DurationSeconds: 2, SpeakerMode: SpeakerAffirmative, Order: 0}})
	_ = c.TogglePause()
	if c.Tick() {
		t.Fatal("first tick should not expire")
	}
	if !c.Tick() {
		t.Fatal("second tick should expire")
	}
	if !c.Paused() || c.ActiveKey() != "" {
		t.Errorf("expected paused with no active key, got paused=%v key=%q", c.Paused(), c.ActiveKey())
	}
	// An exhausted single clock does not resume.
	_ = c.TogglePause()
	if !c.Paused() {
		t.Error("exhausted clock resumed")
	}
}

func TestScenarioSharedPreparationClock(t *testing.T) {
	c := newClock(t, standardPhases())
	if got := mustRemaining(t, c, SingleKey); got != 120 {
		t.Fatalf("expected 120, got %d", got)
	}
	if err := c.TogglePause(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		c.Tick()
	}
	if got := mustRemaining(t, c, SingleKey); got != 110 {
		t.Errorf("expected 110, got %d", got)
	}
	if err := c.SelectClock(SideAffirmative); !errors.Is(err, ErrNotSelectable) {
		t.Errorf("expected ErrNotSelectable, got %v", err)
	}
}

func TestScenarioFreeDebateExhaustion(t *testing.T) {
	c := newClock(t, standardPhases())
	advanceTo(t, c, 2)

	if err := c.SelectClock(SideAffirmative); err != nil {
		t.Fatal(err)
	}
	if c.ActiveKey() != SideAffirmative || c.Paused() {
		t.Fatalf("expected affirmative running, got key=%q paused=%v", c.ActiveKey(), c.Paused())
	}
	for i := 0; i < 240; i++ {
		c.Tick()
	}
	if got := mustRemaining(t, c, SideAffirmative); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if !c.Paused() || c.ActiveKey() != "" {
		t.Errorf("expected paused with no active key")
	}
	if err := c.SelectClock(SideAffirmative); !errors.Is(err, ErrClockExhausted) {
		t.Errorf("expected ErrClockExhausted, got %v", err)
	}
	if got := mustRemaining(t, c, SideNegative); got != 240 {
		t.Errorf("negative bank touched: %d", got)
	}
}

func TestFreeDebateExclusiveFloor(t *testing.T) {
	c := newClock(t, standardPhases())
	advanceTo(t, c, 2)

	if err := c.TogglePause(); err != nil || !c.Paused() {
		t.Fatalf("toggle without a speaker should be a no-op, err=%v paused=%v", err, c.Paused())
	}
	if err := c.SelectClock(SideAffirmative); err != nil {
		t.Fatal(err)
	}
	c.Tick()
	if err := c.SelectClock(SideNegative); !errors.Is(err, ErrClockBusy) {
		t.Fatalf("expected ErrClockBusy, got %v", err)
	}
	if c.ActiveKey() != SideAffirmative {
		t.Fatalf("busy selection changed the floor to %q", c.ActiveKey())
	}
	if err := c.SelectClock(SideAffirmative); err != nil {
		t.Errorf("reselecting running side: %v", err)
	}

	// Once paused, the other side may take the floor.
	_ = c.TogglePause()
	if err := c.SelectClock(SideNegative); err != nil {
		t.Fatal(err)
	}
	c.Tick()
	c.Tick()
	if got := mustRemaining(t, c, SideAffirmative); got != 239 {
		t.Errorf("affirmative expected 239, got %d", got)
	}
	if got := mustRemaining(t, c, SideNegative); got != 238 {
		t.Errorf("negative expected 238, got %d", got)
	}
	if err := c.SelectClock("judge"); !errors.Is(err, ErrUnknownClock) {
		t.Errorf("expected ErrUnknownClock, got %v", err)
	}
	if !errors.Is(ErrUnknownClock, ErrInvalidClockSelection) {
		t.Error("ErrUnknownClock should wrap ErrInvalidClockSelection")
	}
}

func TestScenarioQAToggle(t *testing.T) {
	c := newClock(t, standardPhases())
	advanceTo(t, c, 3)

	if err := c.SelectClock("aff2"); err != nil {
		t.Fatal(err)
	}
	if c.AnswerCount("aff2") != 1 || c.ActiveKey() != "aff2" {
		t.Fatalf("expected aff2 active with count 1, got key=%q count=%d", c.ActiveKey(), c.AnswerCount("aff2"))
	}
	for i := 0; i < 5; i++ {
		c.Tick()
	}
	if got := mustRemaining(t, c, "aff2"); got != 35 {
		t.Errorf("expected 35, got %d", got)
	}
	if err := c.SelectClock("aff2"); err != nil {
		t.Fatal(err)
	}
	if c.ActiveKey() != "" || !c.Paused() {
		t.Errorf("expected aff2 stopped")
	}
	if got := mustRemaining(t, c, "aff2"); got != 35 {
		t.Errorf("toggle-off changed remaining to %d", got)
	}
	if c.AnswerCount("aff2") != 1 {
		t.Errorf("toggle-off changed answer count to %d", c.AnswerCount("aff2"))
	}
}

func TestQARejectsSecondRole(t *testing.T) {
	c := newClock(t, standardPhases())
	advanceTo(t, c, 3)

	_ = c.SelectClock("neg3")
	before := c.Snapshot()
	if err := c.SelectClock("aff3"); !errors.Is(err, ErrClockBusy) {
		t.Fatalf("expected ErrClockBusy, got %v", err)
	}
	after := c.Snapshot()
	if after.ActiveKey != before.ActiveKey || after.AnswerCounts["aff3"] != 0 {
		t.Errorf("rejected selection changed state: %+v", after)
	}
}

func TestQAExpiryResetsRoleClock(t *testing.T) {
	c := newClock(t, standardPhases(), WithAnswerAllotment(3))
	advanceTo(t, c, 3)

	_ = c.SelectClock("neg2")
	c.Tick()
	c.Tick()
	if !c.Tick() {
		t.Fatal("expected expiry on third tick")
	}
	if got := mustRemaining(t, c, "neg2"); got != 3 {
		t.Errorf("expected role clock reset to 3, got %d", got)
	}
	if c.ActiveKey() != "" || !c.Paused() {
		t.Error("expected no active role after expiry")
	}
	if err := c.SelectClock("neg2"); err != nil {
		t.Fatalf("role should answer again: %v", err)
	}
	if c.AnswerCount("neg2") != 2 {
		t.Errorf("expected second answer counted, got %d", c.AnswerCount("neg2"))
	}
}

func TestQAPausedRoleYieldsToAnother(t *testing.T) {
	c := newClock(t, standardPhases())
	advanceTo(t, c, 3)

	_ = c.SelectClock("aff2")
	_ = c.TogglePause()
	if err := c.SelectClock("neg2"); err != nil {
		t.Fatal(err)
	}
	if c.ActiveKey() != "neg2" || c.Paused() {
		t.Errorf("expected neg2 running, got %q paused=%v", c.ActiveKey(), c.Paused())
	}
}

func TestQADefaultRoles(t *testing.T) {
	c := newClock(t, []Phase{{ID: "qa", SpeakerMode: SpeakerQA, Order: 0}})
	keys := c.ValidKeys()
	if len(keys) != 2 || keys[0] != SideAffirmative || keys[1] != SideNegative {
		t.Errorf("unexpected default roles %v", keys)
	}
}

func TestAdvancePhaseResetsFloor(t *testing.T) {
	c := newClock(t, standardPhases())
	advanceTo(t, c, 2)
	_ = c.SelectClock(SideNegative)
	c.Tick()

	res, err := c.AdvancePhase()
	if err != nil {
		t.Fatal(err)
	}
	if res.Ended || res.To == nil || res.To.ID != "qa" || res.From.ID != "free" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !c.Paused() || c.ActiveKey() != "" {
		t.Error("expected paused with no active key after advance")
	}
}

func TestAdvancePastLastPhaseEnds(t *testing.T) {
	c := newClock(t, standardPhases())
	advanceTo(t, c, 4)
	_ = c.TogglePause()

	res, err := c.AdvancePhase()
	if err != nil {
		t.Fatal(err)
	}
	if !res.Ended || res.To != nil {
		t.Fatalf("expected terminal result, got %+v", res)
	}
	before, _ := c.Remaining(SingleKey)
	c.Tick()
	after, _ := c.Remaining(SingleKey)
	if before != after {
		t.Errorf("tick after end changed remaining %d -> %d", before, after)
	}

	res, err = c.AdvancePhase()
	if !errors.Is(err, ErrIllegalTransition) || !res.Ended || !c.Ended() {
		t.Errorf("second advance: res=%+v err=%v", res, err)
	}
	if err := c.TogglePause(); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got %v", err)
	}
	if err := c.SelectClock(SideAffirmative); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestAbort(t *testing.T) {
	c := newClock(t, standardPhases())
	_ = c.TogglePause()
	if !c.Abort() {
		t.Fatal("first abort should end the session")
	}
	if c.Abort() {
		t.Error("second abort should report already ended")
	}
	c.Tick()
	if got := mustRemaining(t, c, SingleKey); got != 120 {
		t.Errorf("tick after abort changed remaining to %d", got)
	}
}

func TestProgressFraction(t *testing.T) {
	c := newClock(t, standardPhases())
	if got := c.ProgressFraction(); got != 1 {
		t.Errorf("fresh clock expected 1, got %v", got)
	}
	_ = c.TogglePause()
	for i := 0; i < 30; i++ {
		c.Tick()
	}
	if got := c.ProgressFraction(); got != 0.75 {
		t.Errorf("expected 0.75, got %v", got)
	}

	advanceTo(t, c, 2)
	if got := c.ProgressFraction(); got != 1 {
		t.Errorf("free debate without speaker expected 1, got %v", got)
	}
	_ = c.SelectClock(SideAffirmative)
	for i := 0; i < 60; i++ {
		c.Tick()
	}
	if got := c.ProgressFraction(); got != 0.75 {
		t.Errorf("expected 0.75, got %v", got)
	}

	untimed := newClock(t, []Phase{{ID: "open", SpeakerMode: SpeakerAffirmative, Order: 0}})
	if got := untimed.ProgressFraction(); got != 1 {
		t.Errorf("untimed phase expected 1, got %v", got)
	}
	_ = untimed.TogglePause()
	untimed.Tick()
	if got := untimed.ProgressFraction(); got < 0 || got > 1 {
		t.Errorf("fraction out of range: %v", got)
	}
}

func TestSnapshot(t *testing.T) {
	c := newClock(t, standardPhases())
	advanceTo(t, c, 3)
	_ = c.SelectClock("aff3")
	c.Tick()

	s := c.Snapshot()
	if s.PhaseID != "qa" || s.Layout != "roles" || s.PhaseCount != 5 {
		t.Fatalf("unexpected snapshot header %+v", s)
	}
	if s.ActiveKey != "aff3" || s.Remaining != 39 || s.RemainingFormatted != "00:39" {
		t.Errorf("unexpected active clock: key=%q remaining=%d formatted=%q", s.ActiveKey, s.Remaining, s.RemainingFormatted)
	}
	if len(s.Clocks) != 4 {
		t.Fatalf("expected 4 role clocks, got %d", len(s.Clocks))
	}
	for _, v := range s.Clocks {
		if v.Key == "aff3" && (!v.Active || v.Side != SideAffirmative) {
			t.Errorf("aff3 view wrong: %+v", v)
		}
	}
	s.AnswerCounts["aff3"] = 99
	if c.AnswerCount("aff3") != 1 {
		t.Error("snapshot shares answer counts with the clock")
	}
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		seconds  int
		clock    string
		duration string
	}{
		{0, "00:00", "0:00"},
		{59, "00:59", "0:59"},
		{125, "02:05", "2:05"},
		{3725, "62:05", "1:02:05"},
		{-4, "00:00", "0:00"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.seconds); got != tt.clock {
			t.Errorf("FormatClock(%d) = %q, want %q", tt.seconds, got, tt.clock)
		}
		if got := FormatDuration(tt.seconds); got != tt.duration {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.duration)
		}
	}
}

func TestAttributeSpeaker(t *testing.T) {
	phases := standardPhases()
	free, qa, closing := phases[2], phases[3], phases[4]

	tests := []struct {
		name   string
		phase  Phase
		active string
		seq    int
		want   string
	}{
		{"single side", closing, "", 0, SideNegative},
		{"parity even", free, "", 4, SideAffirmative},
		{"parity odd", free, "", 3, SideNegative},
		{"floor holder", free, SideNegative, 0, SideNegative},
		{"qa role side", qa, "aff2", 1, SideAffirmative},
		{"qa idle parity", qa, "", 1, SideNegative},
	}
	for _, tt := range tests {
		if got := AttributeSpeaker(tt.phase, tt.active, tt.seq); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}
