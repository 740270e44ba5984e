package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/BharatPulse/internal/storage"
	"github.com/LJTian/BharatPulse/internal/weather"
)

type fakeWarmer struct {
	n     int
	err   error
	calls int
}

func (f *fakeWarmer) Warm(context.Context) (int, error) {
	f.calls++
	return f.n, f.err
}

type fakeWeather struct {
	failing map[string]bool
}

func (f *fakeWeather) Current(_ context.Context, city string) (*weather.Report, error) {
	if f.failing[city] {
		return nil, errors.New("status 404")
	}
	return &weather.Report{City: city, Temperature: 30}, nil
}

type fakeCities struct {
	mu     sync.Mutex
	cities []storage.WeatherCity
	saved  map[string]weather.Report
}

func (f *fakeCities) ListWeatherCities(context.Context) ([]storage.WeatherCity, error) {
	return f.cities, nil
}

func (f *fakeCities) SaveWeatherSnapshot(_ context.Context, city string, r weather.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = make(map[string]weather.Report)
	}
	f.saved[city] = r
	return nil
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("not a cron", "", &fakeWarmer{}, nil, nil)
	assert.Error(t, err)

	_, err = New("@every 30m", "bogus", &fakeWarmer{}, &fakeWeather{}, &fakeCities{})
	assert.Error(t, err)
}

func TestRunOnceWarms(t *testing.T) {
	w := &fakeWarmer{n: 42}
	s, err := New("@every 30m", "", w, nil, nil)
	require.NoError(t, err)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.Equal(t, 1, w.calls)
}

func TestRefreshWeatherSavesSnapshots(t *testing.T) {
	cities := &fakeCities{cities: []storage.WeatherCity{{City: "Hyderabad"}, {City: "Atlantis"}, {City: "Vizag"}}}
	s, err := New("@every 30m", "@hourly", &fakeWarmer{}, &fakeWeather{failing: map[string]bool{"Atlantis": true}}, cities)
	require.NoError(t, err)

	n, err := s.RefreshWeather(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, cities.saved, "Hyderabad")
	assert.Contains(t, cities.saved, "Vizag")
	assert.NotContains(t, cities.saved, "Atlantis")
}

func TestRefreshWeatherWithoutStore(t *testing.T) {
	s, err := New("@every 30m", "@hourly", &fakeWarmer{}, &fakeWeather{}, nil)
	require.NoError(t, err)
	n, err := s.RefreshWeather(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
