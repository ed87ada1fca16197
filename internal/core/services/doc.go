// Package services implements the driving port interfaces.
// Services contain the core pipeline logic - classification
// validation, linking, grouping, synthesis and orchestration -
// and call out through driven ports only.
package services
