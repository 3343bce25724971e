package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/regulogio/regulog/pkg/regulog"
)

var (
	cloudwatchLogGroup string
	cloudwatchRegion   string
	cloudwatchProfile  string

	k8sKubeconfig    string
	k8sNamespace     string
	k8sLabelSelector string
	k8sContainer     string

	dockerContainers []string

	sshAddr           string
	sshUser           string
	sshPrivateKeyPath string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cloudwatchLogGroup, "cloudwatch-log-group", "", "CloudWatch Logs group name (source-kind=cloudwatch)")
	rootCmd.PersistentFlags().StringVar(&cloudwatchRegion, "cloudwatch-region", "", "AWS region override (source-kind=cloudwatch)")
	rootCmd.PersistentFlags().StringVar(&cloudwatchProfile, "cloudwatch-profile", "", "AWS shared config profile (source-kind=cloudwatch)")

	rootCmd.PersistentFlags().StringVar(&k8sKubeconfig, "k8s-kubeconfig", "", "kubeconfig path, empty uses the default loading rules (source-kind=k8s)")
	rootCmd.PersistentFlags().StringVar(&k8sNamespace, "k8s-namespace", "", "namespace to list pods in (source-kind=k8s)")
	rootCmd.PersistentFlags().StringVar(&k8sLabelSelector, "k8s-label-selector", "", "pod label selector (source-kind=k8s)")
	rootCmd.PersistentFlags().StringVar(&k8sContainer, "k8s-container", "", "container name within each matched pod (source-kind=k8s)")

	rootCmd.PersistentFlags().StringArrayVar(&dockerContainers, "docker-container", nil, "container name or id to read logs from, repeatable (source-kind=docker)")

	rootCmd.PersistentFlags().StringVar(&sshAddr, "ssh-addr", "", "host:port to dial (source-kind=ssh)")
	rootCmd.PersistentFlags().StringVar(&sshUser, "ssh-user", "", "ssh username (source-kind=ssh)")
	rootCmd.PersistentFlags().StringVar(&sshPrivateKeyPath, "ssh-private-key", "", "private key file (source-kind=ssh)")

	_ = rootCmd.RegisterFlagCompletionFunc("source-kind", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"local", "cloudwatch", "k8s", "docker", "ssh"}, cobra.ShellCompDirectiveNoFileComp
	})
}

// sourceConfig builds the backend selection for regulog.Search/Overview/
// Extract from --source-kind and the backend-specific flags registered
// above. paths is only used for source-kind ssh, where the command's
// positional PATH arguments are the remote files to cat rather than local
// scan roots.
func sourceConfig(paths []string) regulog.SourceConfig {
	return regulog.SourceConfig{
		Kind: strings.ToLower(sourceKind),

		CloudWatchLogGroup: cloudwatchLogGroup,
		CloudWatchRegion:   cloudwatchRegion,
		CloudWatchProfile:  cloudwatchProfile,

		K8sKubeconfig:    k8sKubeconfig,
		K8sNamespace:     k8sNamespace,
		K8sLabelSelector: k8sLabelSelector,
		K8sContainer:     k8sContainer,

		DockerContainers: dockerContainers,

		SSHAddr:           sshAddr,
		SSHUser:           sshUser,
		SSHPrivateKeyPath: sshPrivateKeyPath,
		SSHPaths:          paths,
	}
}
