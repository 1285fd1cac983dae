package app

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"soilnode/internal/state"
)

type fakeProbe struct{ sample state.SoilSample }

func (f *fakeProbe) Read() state.SoilSample { return f.sample }

type fakeReporter struct {
	result state.Prediction
	err    error
	calls  int
}

func (f *fakeReporter) Report(_ context.Context, _ state.SoilSample, prev state.Prediction) (state.Prediction, error) {
	f.calls++
	if f.err != nil {
		return prev, f.err
	}
	return f.result, nil
}

type fakeLink struct{ calls int }

func (f *fakeLink) CheckAndReconnect() { f.calls++ }

type fakeMirror struct {
	calls int
	err   error
}

func (f *fakeMirror) Publish(*state.Node) error {
	f.calls++
	return f.err
}

func goodSample() state.SoilSample {
	return state.SoilSample{
		Humidity:     452,
		Temperature:  253,
		Conductivity: 1200,
		PH:           65,
		Nitrogen:     90,
		Phosphorus:   42,
		Potassium:    43,
	}
}

func testNode(probe sensor, rep *fakeReporter, linkUp bool) (*Node, *state.Node) {
	st := state.New()
	st.Link.Up = linkUp
	n := &Node{
		st:     st,
		link:   &fakeLink{},
		probe:  probe,
		client: rep,
	}
	return n, st
}

func TestCycle_reportsAndUpdatesPrediction(t *testing.T) {
	rep := &fakeReporter{result: state.Prediction{
		Crop: "rice", CropConfidence: 93.4,
		Fertility: "High", FertilityConfidence: 88.1,
	}}
	n, st := testNode(&fakeProbe{sample: goodSample()}, rep, true)

	n.cycle(context.Background())

	if rep.calls != 1 {
		t.Fatalf("reporter calls = %d; want 1", rep.calls)
	}
	if st.Sample != goodSample() {
		t.Errorf("sample = %+v; want probe read stored", st.Sample)
	}
	if st.Prediction.Crop != "rice" || st.Prediction.Fertility != "High" {
		t.Errorf("prediction = %+v; want reporter result", st.Prediction)
	}
}

func TestCycle_noNPKShortCircuits(t *testing.T) {
	// Zero N/P/K with otherwise valid readings must never reach the
	// reporter, even with the link up.
	sample := goodSample()
	sample.Nitrogen, sample.Phosphorus, sample.Potassium = 0, 0, 0

	rep := &fakeReporter{result: state.Prediction{Crop: "rice"}}
	n, st := testNode(&fakeProbe{sample: sample}, rep, true)

	n.cycle(context.Background())

	if rep.calls != 0 {
		t.Fatalf("reporter calls = %d; want 0", rep.calls)
	}
	want := state.Prediction{Crop: state.LabelNoNPK, Fertility: state.LabelNoNPK}
	if !reflect.DeepEqual(st.Prediction, want) {
		t.Errorf("prediction = %+v; want %+v", st.Prediction, want)
	}
}

func TestCycle_failedReadLandsInNoNPK(t *testing.T) {
	// A bus failure surfaces as the all-zero sample, which classifies
	// as "No NPK" and is not reported.
	rep := &fakeReporter{}
	n, st := testNode(&fakeProbe{}, rep, true)

	n.cycle(context.Background())

	if rep.calls != 0 {
		t.Fatalf("reporter calls = %d; want 0", rep.calls)
	}
	if st.Sample != (state.SoilSample{}) {
		t.Errorf("sample = %+v; want zero", st.Sample)
	}
	if st.Prediction.Crop != state.LabelNoNPK {
		t.Errorf("crop = %q; want %q", st.Prediction.Crop, state.LabelNoNPK)
	}
}

func TestCycle_linkDownSkipsReport(t *testing.T) {
	rep := &fakeReporter{result: state.Prediction{Crop: "rice"}}
	n, st := testNode(&fakeProbe{sample: goodSample()}, rep, false)

	n.cycle(context.Background())

	if rep.calls != 0 {
		t.Fatalf("reporter calls = %d; want 0", rep.calls)
	}
	if st.Prediction.Crop != state.LabelWaiting {
		t.Errorf("crop = %q; want untouched placeholder", st.Prediction.Crop)
	}
	if st.Sample != goodSample() {
		t.Errorf("sample = %+v; want stored despite skipped report", st.Sample)
	}
}

func TestCycle_reportFailureLeavesPredictionUnchanged(t *testing.T) {
	rep := &fakeReporter{err: errors.New("predict status 500")}
	n, st := testNode(&fakeProbe{sample: goodSample()}, rep, true)

	before := state.Prediction{Crop: "rice", CropConfidence: 93.4, Fertility: "High", FertilityConfidence: 88.1}
	st.Prediction = before

	n.cycle(context.Background())

	if rep.calls != 1 {
		t.Fatalf("reporter calls = %d; want 1", rep.calls)
	}
	if !reflect.DeepEqual(st.Prediction, before) {
		t.Errorf("prediction = %+v; want unchanged %+v", st.Prediction, before)
	}

	// The next cycle retries; nothing latched.
	n.cycle(context.Background())
	if rep.calls != 2 {
		t.Errorf("reporter calls = %d; want 2 after second cycle", rep.calls)
	}
}

func TestCycle_checksLinkEveryCycle(t *testing.T) {
	link := &fakeLink{}
	n, _ := testNode(&fakeProbe{sample: goodSample()}, &fakeReporter{}, true)
	n.link = link

	n.cycle(context.Background())
	n.cycle(context.Background())

	if link.calls != 2 {
		t.Errorf("link checks = %d; want 2", link.calls)
	}
}

func TestCycle_mirrorFailureIsAbsorbed(t *testing.T) {
	mirror := &fakeMirror{err: errors.New("broker unreachable")}
	n, st := testNode(&fakeProbe{sample: goodSample()}, &fakeReporter{result: state.Prediction{Crop: "rice"}}, true)
	n.mirror = mirror

	n.cycle(context.Background())

	if mirror.calls != 1 {
		t.Errorf("mirror calls = %d; want 1", mirror.calls)
	}
	if st.Prediction.Crop != "rice" {
		t.Errorf("crop = %q; want rice despite mirror failure", st.Prediction.Crop)
	}
}
