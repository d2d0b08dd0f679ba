// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package builtin

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"

	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/internal/tool"
	"lisa-assistant/pkg/config"
	lerrors "lisa-assistant/pkg/errors"
)

const defaultWeatherURL = "https://api.openweathermap.org/data/2.5"

type owmWeather struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type owmCurrent struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []owmWeather `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

type owmForecast struct {
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			TempMin  float64 `json:"temp_min"`
			TempMax  float64 `json:"temp_max"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Weather []owmWeather `json:"weather"`
		Wind    struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Pop float64 `json:"pop"`
	} `json:"list"`
}

type units struct {
	system, temp, wind string
}

func unitsFor(unit string) units {
	if unit == "fahrenheit" {
		return units{system: "imperial", temp: "°F", wind: "mph"}
	}
	return units{system: "metric", temp: "°C", wind: "m/s"}
}

func conditions(w []owmWeather) (string, string) {
	if len(w) == 0 {
		return "Unknown", "Unknown"
	}
	return w[0].Main, w[0].Description
}

func locationName(name, country string) string {
	if country == "" {
		return name
	}
	return name + ", " + country
}

func weatherError(location string, err error) error {
	if lerrors.Is(err, lerrors.ErrNotFound) {
		return fmt.Errorf("location %q not found", location)
	}
	return err
}

var unitProperty = tool.SchemaProperty{Type: "string", Enum: []string{"celsius", "fahrenheit"}, Description: "Temperature unit, defaults to celsius"}

// WeatherTool get_weather：OpenWeatherMap 当前天气
type WeatherTool struct {
	client *resty.Client
	apiKey string
	now    func() time.Time
}

// NewWeatherTool base_url 为空时使用 OpenWeatherMap 官方地址
func NewWeatherTool(cfg config.HTTPToolConfig) *WeatherTool {
	base := cfg.BaseURL
	if base == "" {
		base = defaultWeatherURL
	}
	return &WeatherTool{client: newRESTClient(base, 10*time.Second), apiKey: cfg.APIKey, now: time.Now}
}

func (t *WeatherTool) Name() string { return "get_weather" }

func (t *WeatherTool) Description() string {
	return "Get the current weather for a city or location."
}

func (t *WeatherTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"location": {Type: "string", Description: "City name, e.g. \"Paris\" or \"Austin, US\""},
			"unit":     unitProperty,
		},
		Required: []string{"location"},
	}
}

func (t *WeatherTool) Execute(ctx context.Context, sc *session.Context, args map[string]any) (string, error) {
	if t.apiKey == "" {
		return "", errors.New("weather API key is not configured")
	}
	location := argString(args, "location")
	u := unitsFor(argString(args, "unit"))

	var data owmCurrent
	err := getJSON(ctx, t.client, "/weather", map[string]string{"q": location, "units": u.system, "appid": t.apiKey}, &data)
	if err != nil {
		return "", weatherError(location, err)
	}
	main, desc := conditions(data.Weather)
	return success(map[string]any{
		"location":     locationName(data.Name, data.Sys.Country),
		"temperature":  map[string]any{"value": math.Round(data.Main.Temp), "unit": u.temp},
		"conditions":   main,
		"description":  desc,
		"humidity":     fmt.Sprintf("%d%%", data.Main.Humidity),
		"wind":         fmt.Sprintf("%.0f %s", math.Round(data.Wind.Speed), u.wind),
		"last_updated": t.now().UTC().Format(time.RFC3339),
	})
}

// ForecastTool get_weather_forecast：5 天 / 3 小时预报按天汇总
type ForecastTool struct {
	client *resty.Client
	apiKey string
}

// NewForecastTool 与 WeatherTool 共用配置
func NewForecastTool(cfg config.HTTPToolConfig) *ForecastTool {
	base := cfg.BaseURL
	if base == "" {
		base = defaultWeatherURL
	}
	return &ForecastTool{client: newRESTClient(base, 10*time.Second), apiKey: cfg.APIKey}
}

func (t *ForecastTool) Name() string { return "get_weather_forecast" }

func (t *ForecastTool) Description() string {
	return "Get a daily weather forecast (up to 5 days) for a location."
}

func (t *ForecastTool) Schema() tool.Schema {
	min, max := tool.Range(1, 5)
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"location": {Type: "string", Description: "City name"},
			"days":     {Type: "integer", Minimum: min, Maximum: max, Description: "Number of days, defaults to 3"},
			"unit":     unitProperty,
		},
		Required: []string{"location"},
	}
}

type dailyForecast struct {
	Date          string         `json:"date"`
	Temperature   map[string]any `json:"temperature"`
	Conditions    string         `json:"conditions"`
	Description   string         `json:"description"`
	Humidity      string         `json:"humidity"`
	Wind          string         `json:"wind"`
	Precipitation string         `json:"precipitation"`
}

func (t *ForecastTool) Execute(ctx context.Context, sc *session.Context, args map[string]any) (string, error) {
	if t.apiKey == "" {
		return "", errors.New("weather API key is not configured")
	}
	location := argString(args, "location")
	days := argInt(args, "days", 3)
	u := unitsFor(argString(args, "unit"))

	var data owmForecast
	err := getJSON(ctx, t.client, "/forecast", map[string]string{"q": location, "units": u.system, "appid": t.apiKey}, &data)
	if err != nil {
		return "", weatherError(location, err)
	}

	// 按 UTC 日期分组，保持出现顺序
	var order []string
	groups := map[string][]int{}
	for i, item := range data.List {
		date := time.Unix(item.Dt, 0).UTC().Format("2006-01-02")
		if _, ok := groups[date]; !ok {
			order = append(order, date)
		}
		groups[date] = append(groups[date], i)
	}
	if len(order) > days {
		order = order[:days]
	}

	out := make([]dailyForecast, 0, len(order))
	for _, date := range order {
		idx := groups[date]
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, i := range idx {
			lo = math.Min(lo, data.List[i].Main.TempMin)
			hi = math.Max(hi, data.List[i].Main.TempMax)
		}
		mid := data.List[idx[len(idx)/2]]
		main, desc := conditions(mid.Weather)
		out = append(out, dailyForecast{
			Date:          date,
			Temperature:   map[string]any{"min": math.Round(lo), "max": math.Round(hi), "unit": u.temp},
			Conditions:    main,
			Description:   desc,
			Humidity:      fmt.Sprintf("%d%%", mid.Main.Humidity),
			Wind:          fmt.Sprintf("%.0f %s", math.Round(mid.Wind.Speed), u.wind),
			Precipitation: fmt.Sprintf("%.0f%%", math.Round(mid.Pop*100)),
		})
	}
	return success(map[string]any{
		"location": locationName(data.City.Name, data.City.Country),
		"forecast": out,
		"days":     len(out),
	})
}
