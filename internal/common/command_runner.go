package common

import (
	"context"
	"time"

	"jobprep/internal/errors"
)

// OperationFunc turns a decoded input document into a printable result.
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, error)

// RunFileCommand decodes the input file, runs op on it and hands the result to
// the output handler.
func RunFileCommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	handler *OutputHandler,
	cmdConfig CommandConfig,
	inputFile string,
	op OperationFunc[Input, Output],
) error {
	var input Input
	if err := handler.fileProcessor.DecodeFile(inputFile, &input); err != nil {
		return err
	}

	logger.Debug("Running file command", "input", inputFile, "format", cmdConfig.OutputFormat)
	start := time.Now()
	result, err := op(ctx, input)
	if err != nil {
		return err
	}
	logger.Debug("File command finished", "elapsed", time.Since(start))

	return handler.HandleOutput(result, cmdConfig)
}
