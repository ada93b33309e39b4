// Package tests groups shared test tooling:
//
//   - fixtures: canned Open-Meteo payloads
//   - helpers: zerolog test loggers, redismock wrapper, test configuration
//   - mocks: gomock mocks, regenerated from the repository root with
//     go generate ./...
package tests
