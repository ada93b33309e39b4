//go:generate mockgen -source=internal/interfaces/weather_client.go -destination=tests/mocks/weather_provider_mock.go -package=mocks

package main

func main() {
	// This file is only used for generating mocks via go:generate comments
}
