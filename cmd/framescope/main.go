package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/keagan/framescope/internal/analyzer"
	"github.com/keagan/framescope/internal/config"
	"github.com/keagan/framescope/internal/detect"
	"github.com/keagan/framescope/internal/ffmpeg"
	"github.com/keagan/framescope/internal/logging"
	"github.com/keagan/framescope/internal/metadata"
	"github.com/keagan/framescope/internal/pipeline"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "framescope",
	Short:        "framescope - short-form video quality and content analysis",
	Long:         "Analyzes downloaded short-form videos and merges quality, content, motion, color and audio metrics into each video's metadata record.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if err := logging.Init(verbose, cfg.LogFile); err != nil {
			return err
		}

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

var (
	flagPreset         string
	flagSampleFrames   int
	flagSamplePercent  int
	flagColorClusters  int
	flagMotionRes      int
	flagWorkers        int
	flagSceneDetection bool
	flagFullResolution bool
	flagYolo           bool
	flagSkipAudio      bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	analyzeCmd.Flags().StringVar(&flagPreset, "preset", "", "analysis preset: quick, balanced, thorough, maximum, extreme")
	analyzeCmd.Flags().IntVar(&flagSampleFrames, "sample-frames", 0, "frames to sample per video (overrides preset)")
	analyzeCmd.Flags().IntVar(&flagSamplePercent, "sample-percent", 0, "percentage of frames to sample (overrides --sample-frames)")
	analyzeCmd.Flags().IntVar(&flagColorClusters, "color-clusters", 0, "number of color clusters (overrides preset)")
	analyzeCmd.Flags().IntVar(&flagMotionRes, "motion-res", 0, "motion analysis resolution in pixels (overrides preset)")
	analyzeCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallel workers (default: CPU count - 1)")
	analyzeCmd.Flags().BoolVar(&flagSceneDetection, "scene-detection", false, "enable scene/cut detection")
	analyzeCmd.Flags().BoolVar(&flagFullResolution, "full-resolution", false, "analyze at full resolution without downscaling")
	analyzeCmd.Flags().BoolVar(&flagYolo, "yolo", false, "enable the deep multi-object detector tier")
	analyzeCmd.Flags().BoolVar(&flagSkipAudio, "skip-audio", false, "skip audio analysis")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(initCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [videos dir]",
	Short: "Analyze downloaded videos and merge results into their metadata",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		preset := flagPreset
		if preset == "" {
			preset = cfg.Analysis.Preset
		}

		acfg, err := config.ResolveAnalysis(preset, buildOverrides(cmd, cfg))
		if err != nil {
			return err
		}

		videosDir := cfg.VideosDir
		if len(args) == 1 {
			videosDir = args[0]
		}

		videos, err := metadata.FindVideos(videosDir)
		if err != nil {
			return err
		}
		if len(videos) == 0 {
			log.Warn().Str("dir", videosDir).Msg("no videos found to analyze")
			return nil
		}

		log.Info().
			Str("preset", acfg.Preset).
			Int("videos", len(videos)).
			Int("sample_frames", acfg.SampleFrameCount).
			Int("sample_percent", acfg.SamplePercent).
			Int("color_clusters", acfg.ColorClusterCount).
			Int("motion_res", acfg.MotionResolution).
			Int("workers", acfg.Workers).
			Bool("yolo", acfg.EnableYolo).
			Bool("scene_detection", acfg.SceneDetection).
			Bool("full_resolution", acfg.FullResolution).
			Bool("audio", acfg.EnableAudio).
			Msg("starting analysis")

		defer func() {
			if err := detect.ShutdownRuntime(); err != nil {
				log.Warn().Err(err).Msg("onnx runtime shutdown failed")
			}
		}()

		factory := func(workerID int) (pipeline.VideoAnalyzer, func(), error) {
			workerLog := log.Logger.With().Int("worker", workerID).Logger()

			exec, err := ffmpeg.New(workerLog, cfg.FFmpeg.Threads)
			if err != nil {
				return nil, nil, err
			}

			chain := detect.Resolve(workerLog, detect.Options{
				FaceLandmarkPath: cfg.Models.FaceLandmarkPath,
				YoloPath:         cfg.Models.YoloPath,
				CascadePath:      cfg.Models.CascadePath,
				EnableYolo:       acfg.EnableYolo,
			})

			an := analyzer.New(workerLog, exec, chain, acfg)
			cleanup := func() {
				if err := chain.Close(); err != nil {
					workerLog.Warn().Err(err).Msg("detector chain close failed")
				}
			}
			return an, cleanup, nil
		}

		bar := progressbar.NewOptions(len(videos),
			progressbar.OptionSetDescription("analyzing"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
		)

		store := metadata.NewStore(log.Logger)
		orch := pipeline.New(log.Logger, store)

		summary := orch.Run(cmd.Context(), videos, factory, pipeline.Options{
			Workers: acfg.Workers,
			OnProgress: func(completed, total int) {
				_ = bar.Set(completed)
			},
		})
		_ = bar.Finish()

		log.Info().
			Int("succeeded", summary.Succeeded).
			Int("failed", summary.Failed).
			Int("total", summary.Total).
			Float64("videos_per_second", summary.VideosPerSecond()).
			Msg("analysis summary")

		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d videos failed", summary.Failed, summary.Total)
		}
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.yaml to the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "./config.yaml"
		if cfgFile != "" {
			path = cfgFile
		}

		cfg := config.FromContext(cmd.Context())
		if err := cfg.Save(path); err != nil {
			return err
		}

		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List analysis presets and their resolved parameters",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range config.PresetNames() {
			acfg, err := config.ResolveAnalysis(name, config.Overrides{})
			if err != nil {
				return err
			}
			fmt.Printf("%-10s frames=%-4d clusters=%-3d motion_res=%-4d yolo=%-5v scenes=%-5v full_res=%v\n",
				name, acfg.SampleFrameCount, acfg.ColorClusterCount, acfg.MotionResolution,
				acfg.EnableYolo, acfg.SceneDetection, acfg.FullResolution)
		}
		return nil
	},
}

// buildOverrides maps explicitly set flags onto preset overrides. Unset flags
// leave the preset values alone.
func buildOverrides(cmd *cobra.Command, cfg *config.Config) config.Overrides {
	o := config.Overrides{SkipAudio: flagSkipAudio}

	if cmd.Flags().Changed("sample-frames") {
		o.SampleFrames = &flagSampleFrames
	}
	if cmd.Flags().Changed("sample-percent") {
		o.SamplePercent = &flagSamplePercent
	}
	if cmd.Flags().Changed("color-clusters") {
		o.ColorClusters = &flagColorClusters
	}
	if cmd.Flags().Changed("motion-res") {
		o.MotionRes = &flagMotionRes
	}
	if cmd.Flags().Changed("scene-detection") {
		o.SceneDetection = &flagSceneDetection
	}
	if cmd.Flags().Changed("full-resolution") {
		o.FullResolution = &flagFullResolution
	}
	if cmd.Flags().Changed("yolo") {
		o.EnableYolo = &flagYolo
	}

	if cmd.Flags().Changed("workers") {
		o.Workers = &flagWorkers
	} else if cfg.Analysis.Workers > 0 {
		workers := cfg.Analysis.Workers
		o.Workers = &workers
	}

	return o
}
