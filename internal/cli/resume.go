package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jobprep/internal/client"
	"jobprep/internal/common"
	"jobprep/internal/errors"
	"jobprep/internal/resume"
	"jobprep/internal/storage"
	"jobprep/internal/types"
	"jobprep/internal/validation"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Check, analyze, export and save a résumé draft",
	Long: `Résumé tools. Commands that take [draft-file] read that JSON draft;
without it they use the draft kept in the configured storage backend.`,
}

var resumeValidateCmd = &cobra.Command{
	Use:   "validate [draft-file]",
	Short: "Report field errors in a draft",
	Args:  cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveOutput(cmd.Context(), &validateOutput)
	},
	RunE: runResumeValidate,
}

var resumeExportCmd = &cobra.Command{
	Use:   "export [draft-file]",
	Short: "Write the printable HTML résumé",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runResumeExport,
}

var resumeAnalyzeCmd = &cobra.Command{
	Use:   "analyze [draft-file]",
	Short: "Get AI feedback on a cover-letter section or the whole draft",
	Long: `Without --section the whole draft is analyzed; that needs a draft with no
field errors. Sections: growthProcess, strengthsWeaknesses, academicLife, motivation.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResumeAnalyze,
}

var resumePhotoCmd = &cobra.Command{
	Use:   "photo [image-file]",
	Short: "Check a photo and build its preview",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if photoOutput.OutputFormat == "" {
			photoOutput.OutputFormat = "json"
		}
		return resolveOutput(cmd.Context(), &photoOutput)
	},
	RunE: runResumePhoto,
}

var resumeSaveCmd = &cobra.Command{
	Use:   "save [draft-file]",
	Short: "Save the draft to the backend",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runResumeSave,
}

var resumeWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-validate the stored draft whenever the draft file changes",
	Args:  cobra.NoArgs,
	RunE:  runResumeWatch,
}

var resumeDraftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Show, import or clear the stored draft",
}

var resumeDraftShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored draft",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if draftShowOutput.OutputFormat == "" {
			draftShowOutput.OutputFormat = "json"
		}
		return resolveOutput(cmd.Context(), &draftShowOutput)
	},
	RunE: runDraftShow,
}

var resumeDraftImportCmd = &cobra.Command{
	Use:   "import [draft-file]",
	Short: "Replace the stored draft with a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftImport,
}

var resumeDraftClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the stored draft",
	Args:  cobra.NoArgs,
	RunE:  runDraftClear,
}

var (
	validateOutput  common.CommandConfig
	photoOutput     common.CommandConfig
	draftShowOutput common.CommandConfig

	exportFile     string
	exportPhoto    string
	analyzeSection string
	analyzeSave    bool
	savePhoto      string
	importPhoto    string
	photoStore     bool
)

func init() {
	addOutputFlags(resumeValidateCmd, &validateOutput)
	addOutputFlags(resumePhotoCmd, &photoOutput)
	addOutputFlags(resumeDraftShowCmd, &draftShowOutput)

	resumeExportCmd.Flags().StringVarP(&exportFile, "output", "o", "", "HTML file (default: 이력서_<name>_<date>.html)")
	resumeExportCmd.Flags().StringVar(&exportPhoto, "photo", "", "Photo to embed instead of the stored preview")
	resumeAnalyzeCmd.Flags().StringVar(&analyzeSection, "section", "", "Cover-letter section key")
	resumeAnalyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Also save the feedback to AI_피드백_<date>.txt")
	resumeSaveCmd.Flags().StringVar(&savePhoto, "photo", "", "Photo file uploaded with the draft")
	resumeDraftImportCmd.Flags().StringVar(&importPhoto, "photo", "", "Photo whose preview is stored with the draft")
	resumePhotoCmd.Flags().BoolVar(&photoStore, "store", false, "Store the preview with the saved draft")

	resumeDraftCmd.AddCommand(resumeDraftShowCmd, resumeDraftImportCmd, resumeDraftClearCmd)
	resumeCmd.AddCommand(resumeValidateCmd, resumeExportCmd, resumeAnalyzeCmd, resumePhotoCmd,
		resumeSaveCmd, resumeWatchCmd, resumeDraftCmd)
}

// loadDraft reads args[0] when given, otherwise the stored draft and its preview.
func loadDraft(ctx context.Context, args []string) (types.ResumeDraft, string, error) {
	logger := getLoggerFromContext(ctx)
	if len(args) > 0 {
		draft := types.DefaultResumeDraft()
		if err := common.NewFileProcessor(logger).DecodeFile(args[0], &draft); err != nil {
			return types.ResumeDraft{}, "", err
		}
		return draft, "", nil
	}

	store, backend, err := openDraftStore(ctx)
	if err != nil {
		return types.ResumeDraft{}, "", err
	}
	defer closeBackend(backend, logger)
	draft, preview := store.Load(ctx)
	return draft, preview, nil
}

func newPhotoLoader(ctx context.Context) *resume.PhotoLoader {
	cfg := getConfigFromContext(ctx)
	return resume.NewPhotoLoader(cfg.Resume.MaxPhotoBytes, cfg.Resume.PreviewMaxSide, getLoggerFromContext(ctx))
}

func newForm(draft types.ResumeDraft) *validation.Form {
	return validation.NewForm(validation.New(nil), draft)
}

func runResumeValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	draft, _, err := loadDraft(ctx, args)
	if err != nil {
		return err
	}
	return common.NewOutputHandler(getLoggerFromContext(ctx)).HandleOutput(newForm(draft).Report(), validateOutput)
}

func runResumeExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := getLoggerFromContext(ctx)

	draft, preview, err := loadDraft(ctx, args)
	if err != nil {
		return err
	}
	if exportPhoto != "" {
		photo, err := newPhotoLoader(ctx).LoadFile(ctx, exportPhoto)
		if err != nil {
			return err
		}
		preview = photo.Preview
	}

	html, err := resume.ExportHTML(draft, preview)
	if err != nil {
		return err
	}
	target := exportFile
	if target == "" {
		target = resume.ExportFileName(draft.Name, time.Now())
	}
	if err := common.NewFileProcessor(logger).WriteFile(target, string(html)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", target)
	return nil
}

func runResumeAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	draft, _, err := loadDraft(ctx, args)
	if err != nil {
		return err
	}
	analyzer := resume.NewAnalyzer(newClient(ctx), cfg.Resume.MaxTextLength, logger)

	var feedback string
	if analyzeSection != "" {
		text, ok := resume.CoverLetterText(draft, analyzeSection)
		if !ok {
			return errors.NewValidationError(errors.ErrCodeInvalidInput, resume.MsgInvalidSection, nil).
				WithContext("section", analyzeSection)
		}
		feedback, err = analyzer.AnalyzeSection(ctx, analyzeSection, text)
	} else {
		feedback, err = analyzer.AnalyzeFull(ctx, newForm(draft))
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, strings.TrimRight(feedback, "\n"))
	if !analyzeSave {
		return nil
	}
	if err := resume.CheckFeedback(feedback); err != nil {
		return err
	}
	name := resume.FeedbackFileName(time.Now())
	if err := common.NewFileProcessor(logger).WriteFile(name, feedback); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%s\n", name)
	return nil
}

func runResumePhoto(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := getLoggerFromContext(ctx)

	photo, err := newPhotoLoader(ctx).LoadFile(ctx, args[0])
	if err != nil {
		return err
	}
	if photoStore {
		store, backend, err := openDraftStore(ctx)
		if err != nil {
			return err
		}
		defer closeBackend(backend, logger)
		draft, _ := store.Load(ctx)
		if err := store.Save(ctx, draft, photo.Preview); err != nil {
			return err
		}
	}
	return common.NewOutputHandler(logger).HandleOutput(photo, photoOutput)
}

func runResumeSave(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := getLoggerFromContext(ctx)

	draft, _, err := loadDraft(ctx, args)
	if err != nil {
		return err
	}
	if msg := newForm(draft).FirstError(); msg != "" {
		return errors.NewValidationError(errors.ErrCodeInvalidInput, msg, nil)
	}

	var photo *client.Photo
	if savePhoto != "" {
		// size and type are checked before the raw file is uploaded
		if _, err := newPhotoLoader(ctx).LoadFile(ctx, savePhoto); err != nil {
			return err
		}
		data, err := os.ReadFile(savePhoto)
		if err != nil {
			return errors.NewIOError(errors.ErrCodeFileReadFailed, resume.MsgFileRead, err)
		}
		photo = &client.Photo{FileName: filepath.Base(savePhoto), Data: data}
	}

	saved, err := newClient(ctx).SaveResume(ctx, draft, photo)
	if err != nil {
		return err
	}
	msg := saved.Message
	if msg == "" {
		msg = "저장 되었습니다."
	}
	logger.Info("Resume saved", "resume_id", saved.ID)
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

func runResumeWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	store, backend, err := openDraftStore(ctx)
	if err != nil {
		return err
	}
	defer closeBackend(backend, logger)

	fb, ok := backend.(*storage.FileBackend)
	if !ok {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("resume watch needs the file storage backend, configured: %s", cfg.Storage.Backend), nil)
	}

	out := cmd.OutOrStdout()
	check := func() {
		draft, _ := store.Load(ctx)
		stamp := time.Now().Format("15:04:05")
		if msg := newForm(draft).FirstError(); msg != "" {
			fmt.Fprintf(out, "[%s] %s\n", stamp, msg)
			return
		}
		fmt.Fprintf(out, "[%s] 입력 오류가 없습니다.\n", stamp)
	}

	watcher := storage.NewWatcher(fb.Path(), cfg.Storage.Watch.Debounce, check, logger)
	if err := watcher.Start(); err != nil {
		return err
	}
	check()
	<-ctx.Done()
	return watcher.Stop()
}

func runDraftShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	draft, _, err := loadDraft(ctx, nil)
	if err != nil {
		return err
	}
	return common.NewOutputHandler(getLoggerFromContext(ctx)).HandleOutput(draft, draftShowOutput)
}

func runDraftImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := getLoggerFromContext(ctx)

	draft, _, err := loadDraft(ctx, args)
	if err != nil {
		return err
	}
	var preview string
	if importPhoto != "" {
		photo, err := newPhotoLoader(ctx).LoadFile(ctx, importPhoto)
		if err != nil {
			return err
		}
		preview = photo.Preview
	}

	store, backend, err := openDraftStore(ctx)
	if err != nil {
		return err
	}
	defer closeBackend(backend, logger)
	if err := store.Save(ctx, draft, preview); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "저장 되었습니다.")
	return nil
}

func runDraftClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := getLoggerFromContext(ctx)

	store, backend, err := openDraftStore(ctx)
	if err != nil {
		return err
	}
	defer closeBackend(backend, logger)
	if err := store.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "모든 내용이 삭제되었습니다.")
	return nil
}
